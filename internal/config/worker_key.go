package config

type WorkerKeyStruct struct {
	PersistProgressQueue   string
	PersistViolationsQueue string
	AttemptResultsQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue:   "persist_progress_queue",
	PersistViolationsQueue: "persist_violations_queue",
	AttemptResultsQueue:    "attempt_results_queue",
}
