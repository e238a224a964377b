package config

import (
    "os"
    "strconv"
    "time"
)

// WaitlistPolicy carries the tunable timing and precision knobs of the
// waitlist core.  Unlike Config these are all optional with sensible
// defaults, so rooms can run with an empty environment.
type WaitlistPolicy struct {
    CheckInWindow    time.Duration // how long a calledin entry may stay unconfirmed
    NotifyWindow     time.Duration // how long a notified entry may take to respond
    RebalanceEpsilon float64       // adjacent-rank gap below which the queue is rewritten
    SweepInterval    time.Duration // how often each armed room is scanned
}

// LoadWaitlistPolicy reads the policy knobs from the environment.  Window
// variables are minutes to match how floor staff talk about them; the
// sweep interval takes a Go duration string.  Out-of-range values fall
// back to the defaults rather than failing startup.
func LoadWaitlistPolicy() WaitlistPolicy {
    p := WaitlistPolicy{
        CheckInWindow:    time.Duration(envInt("WAITLIST_CHECKIN_WINDOW_MIN", 90)) * time.Minute,
        NotifyWindow:     time.Duration(envInt("WAITLIST_NOTIFY_WINDOW_MIN", 5)) * time.Minute,
        RebalanceEpsilon: envFloat("WAITLIST_REBALANCE_EPSILON", 0.001),
        SweepInterval:    envDur("WAITLIST_SWEEP_INTERVAL", 30*time.Second),
    }
    if p.CheckInWindow <= 0 { p.CheckInWindow = 90 * time.Minute }
    if p.NotifyWindow <= 0 { p.NotifyWindow = 5 * time.Minute }
    if p.RebalanceEpsilon <= 0 { p.RebalanceEpsilon = 0.001 }
    if p.SweepInterval < time.Second { p.SweepInterval = 30 * time.Second }
    return p
}

func envFloat(k string, d float64) float64 {
    v := os.Getenv(k); if v == "" { return d }
    if f, err := strconv.ParseFloat(v, 64); err == nil { return f }
    return d
}
