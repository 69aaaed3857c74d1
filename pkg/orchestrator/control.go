package orchestrator

// PerformStop is the global "silence everything" primitive: it cancels
// the current session, drains both queues, tears down the TTS playback
// child and stops music. Safe to call from any goroutine, idempotent.
// A new audible floor holder always starts behind a stop.
func (o *Orchestrator) PerformStop() {
	o.log.Info("global stop: cutting all audible sources")

	o.state.CancelSession()

	o.state.FlushText()
	o.state.FlushPCM()

	proc, stdin := o.state.TakePlayer()
	if stdin != nil {
		_ = stdin.Close()
	}
	if proc != nil && proc.Process != nil {
		_ = proc.Process.Kill()
		go proc.Wait()
	}

	if o.music != nil {
		o.music.Stop()
	}
}
