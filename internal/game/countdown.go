package game

import (
	"sync"

	"github.com/coder/quartz"
)

// countdown is the repeating join timer. It owns its quartz timer and
// is cancelled explicitly by every transition that supersedes it; a
// tick that fires after cancellation is a no-op.
type countdown struct {
	mu        sync.Mutex
	timer     *quartz.Timer
	remaining int
	cancelled bool
}

func (cd *countdown) cancel() {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	cd.cancelled = true
	if cd.timer != nil {
		cd.timer.Stop()
	}
}

// startCountdown begins the join countdown: an immediate announcement
// of the full window, then one tick per interval. The final tick
// either starts play or stops the game for lack of players.
func (g *Game) startCountdown() {
	cd := &countdown{remaining: g.cfg.CountdownTicks}
	g.stateMu.Lock()
	g.countdown = cd
	g.stateMu.Unlock()

	interval := int(g.cfg.CountdownInterval.Seconds())
	g.broadcastf("%d seconds remain to join the game!", cd.remaining*interval)

	var tick func()
	tick = func() {
		cd.mu.Lock()
		if cd.cancelled {
			cd.mu.Unlock()
			return
		}
		cd.remaining--
		remaining := cd.remaining
		cd.mu.Unlock()

		if remaining > 0 {
			g.broadcastf("%d seconds remain to join the game!", remaining*interval)
			cd.mu.Lock()
			if !cd.cancelled {
				cd.timer = g.clock.AfterFunc(g.cfg.CountdownInterval, tick)
			}
			cd.mu.Unlock()
			return
		}
		if len(g.Players()) >= g.cfg.MinPlayers {
			g.AdvanceStage()
			return
		}
		g.broadcastf("Not enough players. At least %d people are required for the game to begin.", g.cfg.MinPlayers)
		g.Stop()
	}

	cd.mu.Lock()
	cd.timer = g.clock.AfterFunc(g.cfg.CountdownInterval, tick)
	cd.mu.Unlock()
}
