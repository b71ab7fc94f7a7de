// Package observer decouples run progress reporting from any presentation layer.
package observer

// Stats is the aggregate run state pushed to observers after every change.
type Stats struct {
	Discovered int `json:"discovered"`
	QuickApply int `json:"quick_apply"`
	Manual     int `json:"manual"`
	Applied    int `json:"applied"`
	Failed     int `json:"failed"`
	Suitable   int `json:"suitable"`
	Unsuitable int `json:"unsuitable"`
}

// Observer receives log lines and statistics from a run.
// Implementations must not block; they are invoked on the driving goroutine.
type Observer interface {
	OnLogLine(line string)
	OnStatsUpdate(stats Stats)
}

// Nop discards everything.
type Nop struct{}

func (Nop) OnLogLine(string)    {}
func (Nop) OnStatsUpdate(Stats) {}

// OrNop returns o, or a Nop observer when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}
