package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptProgressKey returns the cache key holding the latest autosave snapshot of an attempt.
func (r *CacheKeyStruct) AttemptProgressKey(submissionID string) string {
	return fmt.Sprintf("attempt:%s:progress", submissionID)
}

// ExamDefinitionKey returns the cache key for a published exam with its
// questions and answer keys. It is never sent to students as is.
func (r *CacheKeyStruct) ExamDefinitionKey(examID string) string {
	return fmt.Sprintf("exam:%s:definition", examID)
}

// ExamBestScoresKey returns the sorted set of each student's best score ratio.
func (r *CacheKeyStruct) ExamBestScoresKey(examID string) string {
	return fmt.Sprintf("exam:%s:best_scores", examID)
}

// AutosaveRateKey returns the per-student autosave rate limit bucket.
func (r *CacheKeyStruct) AutosaveRateKey(studentID int) string {
	return fmt.Sprintf("ratelimit:autosave:%d", studentID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
