package config

type WorkerKeyStruct struct {
	ExtractFramesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ExtractFramesQueue: "extract_frames_queue",
}
