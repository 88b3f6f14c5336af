package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ClientPrefsKey returns the Redis hash key holding a browser client's
// persisted preferences (annotator name, unfilled search index, unfilled
// scope, auto-submit flag).
func (r *CacheKeyStruct) ClientPrefsKey(clientID string) string {
	return fmt.Sprintf("client:%s:prefs", clientID)
}

// FormStateKey returns the Redis hash key mirroring a client's in-progress
// form state for one stimulus, so a page reload restores the answers.
func (r *CacheKeyStruct) FormStateKey(clientID, task, stimulusID string) string {
	return fmt.Sprintf("client:%s:task:%s:stim:%s:state", clientID, task, stimulusID)
}

// TaskMonitorChannel returns the Redis Pub/Sub channel name carrying live
// submission events for a task.
func (r *CacheKeyStruct) TaskMonitorChannel(task string) string {
	return fmt.Sprintf("task:%s:monitor", task)
}

var CacheKey = NewCacheKeyStruct()
