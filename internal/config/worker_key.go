package config

type WorkerKeyStruct struct {
	PersistAnswersQueue  string
	PersistWarningsQueue string
	PersistResultsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:  "persist_answers_queue",
	PersistWarningsQueue: "persist_warnings_queue",
	PersistResultsQueue:  "persist_results_queue",
}
