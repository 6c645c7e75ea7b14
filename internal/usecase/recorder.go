package usecase

import "time"

// Recorder receives operational metrics.
type Recorder interface {
	ObserveBackup(trigger string, ok bool, d time.Duration)
	ObserveRestore(ok bool, d time.Duration)
	RetentionDeleted(n int)
	MirrorUpload(target string, ok bool)
	SchedulerRunning(running bool)
	Connected(connected bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBackup(string, bool, time.Duration) {}
func (nopRecorder) ObserveRestore(bool, time.Duration)        {}
func (nopRecorder) RetentionDeleted(int)                      {}
func (nopRecorder) MirrorUpload(string, bool)                 {}
func (nopRecorder) SchedulerRunning(bool)                     {}
func (nopRecorder) Connected(bool)                            {}
