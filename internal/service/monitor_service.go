package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/repository"
)

// recentWindow bounds the "recent violations" figure of a snapshot.
const recentWindow = 5 * time.Minute

// MonitorService builds live exam snapshots for instructors.
type MonitorService struct {
	subRepo       *repository.SubmissionRepository
	violationRepo *repository.ViolationRepository
	rdb           *redis.Client
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(subRepo *repository.SubmissionRepository, violationRepo *repository.ViolationRepository, rdb *redis.Client) *MonitorService {
	return &MonitorService{subRepo: subRepo, violationRepo: violationRepo, rdb: rdb}
}

// StudentScore is one entry of the exam leaderboard.
type StudentScore struct {
	StudentID int     `json:"student_id"`
	Ratio     float64 `json:"ratio"`
}

// MonitorSnapshot is the initial and periodic state pushed to the monitor.
type MonitorSnapshot struct {
	Type            string                         `json:"type"`
	StatusCounts    map[model.SubmissionStatus]int `json:"status_counts"`
	ViolationCounts map[int]int                    `json:"violation_counts"`
	TotalViolations int                            `json:"total_violations"`
	// RecentViolations counts violations logged in the last five minutes.
	RecentViolations int            `json:"recent_violations"`
	TopScores        []StudentScore `json:"top_scores"`
}

// Snapshot gathers attempt counts, violation counts and the best scores
// concurrently. Only the attempt counts are required; the other figures are
// left empty when their source fails.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID, top int) (*MonitorSnapshot, error) {
	snap := &MonitorSnapshot{
		Type:            "snapshot",
		StatusCounts:    map[model.SubmissionStatus]int{},
		ViolationCounts: map[int]int{},
		TopScores:       []StudentScore{},
	}

	var (
		counts     map[model.SubmissionStatus]int
		violations map[int]int
		recent     int
		scores     []redis.Z
		countsErr  error
		violErr    error
		recentErr  error
		scoresErr  error
		wg         sync.WaitGroup
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		counts, countsErr = s.subRepo.CountByStatus(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		violations, violErr = s.violationRepo.CountByStudent(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		recent, recentErr = s.violationRepo.CountSince(ctx, examID, time.Now().Add(-recentWindow))
	}()
	go func() {
		defer wg.Done()
		scores, scoresErr = s.rdb.ZRevRangeWithScores(ctx,
			config.CacheKey.ExamBestScoresKey(examID.String()), 0, int64(top-1)).Result()
	}()
	wg.Wait()

	if countsErr != nil {
		return nil, countsErr
	}
	snap.StatusCounts = counts

	if violErr == nil && violations != nil {
		snap.ViolationCounts = violations
		for _, n := range violations {
			snap.TotalViolations += n
		}
	}

	if recentErr == nil {
		snap.RecentViolations = recent
	}

	if scoresErr == nil {
		for _, z := range scores {
			id, ok := parseStudentMember(z.Member)
			if !ok {
				continue
			}
			snap.TopScores = append(snap.TopScores, StudentScore{StudentID: id, Ratio: z.Score})
		}
	}
	return snap, nil
}

// parseStudentMember decodes a best-score sorted set member, which is the
// student id in decimal.
func parseStudentMember(member any) (int, bool) {
	str, ok := member.(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(str)
	return id, err == nil
}
