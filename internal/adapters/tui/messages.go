package tui

import "time"

type msgPlan struct {
	tasks   []string
	targets []string
}

type msgTaskStart struct {
	spanID string
	name   string
	start  time.Time
}

type msgTaskLog struct {
	spanID string
	data   []byte
}

type msgTaskComplete struct {
	spanID string
	end    time.Time
	err    error
}
