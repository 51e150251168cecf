package integration

import (
	"sort"
	"time"
)

type commKey struct {
	source string
	target string
}

// Communication records one exchange from this agent to another.
type Communication struct {
	Source    string      `json:"source"`
	Target    string      `json:"target"`
	Result    interface{} `json:"result,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// RecordCommunication logs an exchange with target. At most MaxSamples
// records are kept per target; the counters are not trimmed.
func (f *Facade) RecordCommunication(target string, result interface{}) {
	c := Communication{
		Source:    f.cfg.Agent,
		Target:    target,
		Result:    result,
		Timestamp: f.clock.Now(),
	}
	key := commKey{source: f.cfg.Agent, target: target}

	f.mu.Lock()
	defer f.mu.Unlock()

	log := append(f.comms[key], c)
	if over := len(log) - f.cfg.MaxSamples; over > 0 {
		log = append([]Communication(nil), log[over:]...)
	}
	f.comms[key] = log
	f.commCounts[key]++
	f.commTotal++
}

// LastCommunication returns the most recent exchange with target.
func (f *Facade) LastCommunication(target string) (Communication, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	log := f.comms[commKey{source: f.cfg.Agent, target: target}]
	if len(log) == 0 {
		return Communication{}, false
	}
	return log[len(log)-1], true
}

// CommunicationCount returns how many exchanges with target were recorded,
// including those no longer retained.
func (f *Facade) CommunicationCount(target string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.commCounts[commKey{source: f.cfg.Agent, target: target}]
}

// CommunicationTotal returns the number of exchanges recorded with any
// partner.
func (f *Facade) CommunicationTotal() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.commTotal
}

// Communications returns the retained exchanges with target, oldest first.
func (f *Facade) Communications(target string) []Communication {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Communication(nil), f.comms[commKey{source: f.cfg.Agent, target: target}]...)
}

// CommunicationPartners returns every agent this agent has communicated
// with, sorted.
func (f *Facade) CommunicationPartners() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	partners := make([]string, 0, len(f.comms))
	for key := range f.comms {
		if key.source == f.cfg.Agent {
			partners = append(partners, key.target)
		}
	}
	sort.Strings(partners)
	return partners
}
