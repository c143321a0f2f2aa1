package fetcher

import (
	"math/rand"
	"sync"
	"time"
)

// Desktop and mobile user agents grouped by browser family. The pool is
// immutable after construction; selection is random per request so repeated
// fetches against the same merchant do not present an identical fingerprint.
var agentStrings = [][]string{
	{ // Chrome
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	},
	{ // Firefox
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	{ // Safari
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	},
}

// AgentPool hands out user-agent strings from a fixed pool. Safe for
// concurrent use.
type AgentPool struct {
	mu  sync.Mutex
	rng *rand.Rand
	all []string
}

func NewAgentPool() *AgentPool {
	var all []string
	for _, group := range agentStrings {
		all = append(all, group...)
	}
	return &AgentPool{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		all: all,
	}
}

// Random returns one user agent from the pool.
func (p *AgentPool) Random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.all[p.rng.Intn(len(p.all))]
}

// Size reports how many user agents the pool rotates through.
func (p *AgentPool) Size() int {
	return len(p.all)
}
