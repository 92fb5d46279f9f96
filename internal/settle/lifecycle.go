package settle

import (
	"CasinoApi/internal/fair"
	"CasinoApi/internal/games"
	"CasinoApi/internal/models"
	"CasinoApi/pkg/logger"
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrRoundCreationBlocked is returned while a failed round of the game is
// awaiting operator attention. No new rounds open until it is cleared.
var ErrRoundCreationBlocked = errors.New("round creation blocked by a failed round")

var (
	roundMu      sync.Mutex
	gameRoundMus = make(map[string]*sync.Mutex)
)

func roundMutex(game string) *sync.Mutex {
	roundMu.Lock()
	defer roundMu.Unlock()

	mu, ok := gameRoundMus[game]
	if !ok {
		mu = &sync.Mutex{}
		gameRoundMus[game] = mu
	}
	return mu
}

// GetOrCreateCurrentRound returns the game's live round, opening a new one
// with a fresh seed commitment when none exists. Serialized per game so two
// callers cannot open duplicate rounds.
func GetOrCreateCurrentRound(tx *gorm.DB, game string) (*models.Round, error) {
	mu := roundMutex(game)
	mu.Lock()
	defer mu.Unlock()

	round, err := models.GetCurrentRound(tx, game)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, models.ErrRoundNotFound) {
		return nil, err
	}

	blocked, err := models.HasFailedRound(tx, game)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrRoundCreationBlocked
	}

	seed, commitment, err := fair.NewServerSeed()
	if err != nil {
		return nil, logger.WrapError(err, "cannot open round")
	}

	return models.NewRound(tx, game, seed, commitment)
}

// ManagerConfig tunes one game's round cadence.
type ManagerConfig struct {
	BettingWindow     time.Duration
	InterRoundDelay   time.Duration
	ResolveRetryDelay time.Duration
	MaxResolveRetries int
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BettingWindow:     15 * time.Second,
		InterRoundDelay:   5 * time.Second,
		ResolveRetryDelay: 2 * time.Second,
		MaxResolveRetries: 3,
	}
}

// Manager drives one game's round lifecycle end to end: open a round, hold
// the betting window, lock, resolve, settle, pause, repeat.
type Manager struct {
	db     *gorm.DB
	engine *Engine
	game   games.Game
	cfg    ManagerConfig
}

func NewManager(db *gorm.DB, engine *Engine, game games.Game, cfg ManagerConfig) *Manager {
	if cfg.MaxResolveRetries <= 0 {
		cfg = DefaultManagerConfig()
	}
	return &Manager{db: db, engine: engine, game: game, cfg: cfg}
}

// Supervise runs the lifecycle loop and restarts it after a panic. Meant to
// be launched once per game as a goroutine at startup.
func (m *Manager) Supervise(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Game %s lifecycle panic: %v", m.game.Name(), r)
				}
			}()
			m.run(ctx)
		}()

		if ctx.Err() != nil {
			return
		}
		time.Sleep(5 * time.Second)
	}
}

func (m *Manager) run(ctx context.Context) {
	for {
		if err := m.runRound(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Game %s round error: %v", m.game.Name(), err)
			if !sleepCtx(ctx, m.cfg.InterRoundDelay) {
				return
			}
			continue
		}

		if !sleepCtx(ctx, m.cfg.InterRoundDelay) {
			return
		}
	}
}

// runRound takes one round from open to resolved. A round inherited from a
// previous process (already locked or mid-settlement) is picked up where it
// stopped rather than abandoned.
func (m *Manager) runRound(ctx context.Context) error {
	tx := m.db.WithContext(ctx)

	round, err := GetOrCreateCurrentRound(tx, m.game.Name())
	if err != nil {
		return err
	}

	if round.Status == models.RoundOpen {
		closeAt := round.CreatedAt.Add(m.cfg.BettingWindow)
		if wait := time.Until(closeAt); wait > 0 {
			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
		}
		if err := round.Lock(tx); err != nil {
			return err
		}
	}

	if err := m.resolveWithRetries(ctx, round); err != nil {
		logger.Error("Game %s round %d unresolvable, marking failed: %v",
			m.game.Name(), round.ID, err)
		if ferr := round.MarkFailed(tx); ferr != nil {
			return ferr
		}
		return err
	}

	_, err = m.engine.Settle(ctx, round.ID)
	return err
}

func (m *Manager) resolveWithRetries(ctx context.Context, round *models.Round) error {
	var err error
	for attempt := 0; attempt < m.cfg.MaxResolveRetries; attempt++ {
		if attempt > 0 && !sleepCtx(ctx, m.cfg.ResolveRetryDelay) {
			return ctx.Err()
		}
		if _, err = m.engine.Resolve(ctx, round.ID); err == nil {
			return nil
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
