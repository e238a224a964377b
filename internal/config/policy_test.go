package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func clearPolicyEnv(t *testing.T) {
    t.Setenv("WAITLIST_CHECKIN_WINDOW_MIN", "")
    t.Setenv("WAITLIST_NOTIFY_WINDOW_MIN", "")
    t.Setenv("WAITLIST_REBALANCE_EPSILON", "")
    t.Setenv("WAITLIST_SWEEP_INTERVAL", "")
}

func TestLoadWaitlistPolicyDefaults(t *testing.T) {
    clearPolicyEnv(t)

    p := LoadWaitlistPolicy()
    require.Equal(t, 90*time.Minute, p.CheckInWindow)
    require.Equal(t, 5*time.Minute, p.NotifyWindow)
    require.Equal(t, 0.001, p.RebalanceEpsilon)
    require.Equal(t, 30*time.Second, p.SweepInterval)
}

func TestLoadWaitlistPolicyOverrides(t *testing.T) {
    clearPolicyEnv(t)
    t.Setenv("WAITLIST_CHECKIN_WINDOW_MIN", "45")
    t.Setenv("WAITLIST_NOTIFY_WINDOW_MIN", "10")
    t.Setenv("WAITLIST_REBALANCE_EPSILON", "0.01")
    t.Setenv("WAITLIST_SWEEP_INTERVAL", "5s")

    p := LoadWaitlistPolicy()
    require.Equal(t, 45*time.Minute, p.CheckInWindow)
    require.Equal(t, 10*time.Minute, p.NotifyWindow)
    require.Equal(t, 0.01, p.RebalanceEpsilon)
    require.Equal(t, 5*time.Second, p.SweepInterval)
}

func TestLoadWaitlistPolicyRejectsBadValues(t *testing.T) {
    clearPolicyEnv(t)
    t.Setenv("WAITLIST_CHECKIN_WINDOW_MIN", "-1")
    t.Setenv("WAITLIST_NOTIFY_WINDOW_MIN", "0")
    t.Setenv("WAITLIST_REBALANCE_EPSILON", "-0.5")
    t.Setenv("WAITLIST_SWEEP_INTERVAL", "10ms")

    p := LoadWaitlistPolicy()
    require.Equal(t, 90*time.Minute, p.CheckInWindow)
    require.Equal(t, 5*time.Minute, p.NotifyWindow)
    require.Equal(t, 0.001, p.RebalanceEpsilon)
    require.Equal(t, 30*time.Second, p.SweepInterval)
}

func TestLoadWaitlistPolicyIgnoresUnparsable(t *testing.T) {
    clearPolicyEnv(t)
    t.Setenv("WAITLIST_REBALANCE_EPSILON", "tight")
    t.Setenv("WAITLIST_SWEEP_INTERVAL", "soon")

    p := LoadWaitlistPolicy()
    require.Equal(t, 0.001, p.RebalanceEpsilon)
    require.Equal(t, 30*time.Second, p.SweepInterval)
}
