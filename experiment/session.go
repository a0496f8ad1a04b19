// Package experiment runs training and evaluation sessions over several worlds and cycles.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/snake"
	"github.com/zeu5/snake-rl/stats"
	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

// WorldRun is a world and the number of episodes to play in it every cycle
type WorldRun struct {
	World    *snake.World
	Episodes int
}

type SessionConfig struct {
	Name     string
	Training bool
	// Cycles below 1 repeat until ctx is cancelled
	Cycles      int
	Epsilon     types.EpsilonFunc
	Worlds      []WorldRun
	MaxStarving int

	// MemoryPath is loaded before and, when training, saved after the session
	MemoryPath string
	// StatsDir receives one CSV per world and results.csv, empty disables statistics
	StatsDir string
	Plot     bool
}

// Summary of a whole session
type Summary struct {
	Cycles   int
	Episodes int
	Steps    int
	Wins     int
	Loses    int
	Starves  int
	Aborted  bool
	// Rows holds the cycle averages in order
	Rows []stats.Row
}

func (s *Summary) add(r types.Results) {
	s.Episodes += r.Episodes
	s.Steps += r.TotalSteps()
	s.Wins += r.Wins
	s.Loses += r.Loses
	s.Starves += r.Starves
}

// Session plays every configured world once per cycle with a single agent
type Session struct {
	config *SessionConfig
	agent  *policies.Agent
	reward snake.RewardModel
	rand   *rand.Rand
	logger *slog.Logger
	output *Output
}

func NewSession(config *SessionConfig, agent *policies.Agent, reward snake.RewardModel, rng *rand.Rand, logger *slog.Logger) *Session {
	if config.Epsilon == nil {
		config.Epsilon = types.DefaultEpsilon
	}
	if config.MaxStarving == 0 {
		config.MaxStarving = snake.DefaultMaxStarving
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		config: config,
		agent:  agent,
		reward: reward,
		rand:   rng,
		logger: logger,
		output: NewOutput(),
	}
}

// Output exposes the live status of the session for printing
func (s *Session) Output() *Output {
	return s.output
}

// LoadMemory loads the agent memory. A missing file is not an error when training.
func (s *Session) LoadMemory(ctx context.Context) error {
	path := s.config.MemoryPath
	if path == "" {
		return nil
	}
	err := s.agent.Load(ctx, path)
	switch {
	case err == nil:
		s.logger.Info("memory loaded", "path", path)
		return nil
	case errors.Is(err, storage.ErrNotFound) && s.config.Training:
		s.logger.Info("memory not found, starting with a fresh table", "path", path)
		return nil
	default:
		return fmt.Errorf("loading memory %s: %w", path, err)
	}
}

// SaveMemory persists the agent memory, only training sessions change it
func (s *Session) SaveMemory(ctx context.Context) error {
	if !s.config.Training || s.config.MemoryPath == "" {
		return nil
	}
	if err := s.agent.Save(ctx, s.config.MemoryPath); err != nil {
		return fmt.Errorf("saving memory %s: %w", s.config.MemoryPath, err)
	}
	s.logger.Info("memory saved", "path", s.config.MemoryPath)
	return nil
}

// Run plays the cycles and saves the memory at the end, even when interrupted
func (s *Session) Run(ctx context.Context) (Summary, error) {
	summary, err := s.run(ctx)
	if saveErr := s.SaveMemory(context.WithoutCancel(ctx)); saveErr != nil {
		return summary, errors.Join(err, saveErr)
	}
	return summary, err
}

func (s *Session) run(ctx context.Context) (Summary, error) {
	summary := Summary{Rows: make([]stats.Row, 0)}
	if len(s.config.Worlds) == 0 {
		return summary, fmt.Errorf("%w: no worlds to play", types.ErrConfiguration)
	}

	for cycle := 0; s.config.Cycles <= 0 || cycle < s.config.Cycles; cycle++ {
		cycleResults := make([]types.Results, 0, len(s.config.Worlds))
		for _, w := range s.config.Worlds {
			results, err := s.playWorld(ctx, cycle, w)
			if err != nil {
				return summary, err
			}
			summary.add(results)
			if results.Abort {
				summary.Aborted = true
				s.logger.Info("session aborted", "cycle", cycle, "world", w.World.Name, "episodes", results.Episodes)
				return summary, s.plot(summary.Rows)
			}
			if err := s.export(filepath.Join(s.config.StatsDir, w.World.Name+".csv"), stats.WorldRow(cycle, results)); err != nil {
				return summary, err
			}
			cycleResults = append(cycleResults, results)
		}

		row := stats.CycleRow(cycle, cycleResults)
		summary.Rows = append(summary.Rows, row)
		summary.Cycles++
		if err := s.export(filepath.Join(s.config.StatsDir, "results.csv"), row); err != nil {
			return summary, err
		}
		s.logger.Debug("cycle finished", "cycle", cycle, "steps", row.Steps, "score", row.Score, "wins", row.Wins)
	}
	return summary, s.plot(summary.Rows)
}

func (s *Session) playWorld(ctx context.Context, cycle int, w WorldRun) (types.Results, error) {
	epsilon := types.ClampProbability(s.config.Epsilon(cycle, s.config.Cycles, w.World))
	env := snake.NewEnvironment(w.World, s.agent, s.reward, s.rand)
	env.MaxStarving = s.config.MaxStarving
	env.OnEpisode = func(episode int, r *types.Results) {
		s.output.Set(fmt.Sprintf("Cycle:%4d, World:%12s, Episode:%6d/%d, Score:%6.2f, Steps:%8.2f, Wins:%5d, Loses:%5d, Starves:%5d",
			cycle, w.World.Name, episode+1, w.Episodes, r.MeanScore(), r.MeanSteps(), r.Wins, r.Loses, r.Starves))
	}

	s.logger.Debug("playing world", "cycle", cycle, "world", w.World.Name, "episodes", w.Episodes, "epsilon", epsilon)
	results, err := env.Execute(ctx, snake.ExecuteConfig{
		Episodes: w.Episodes,
		Epsilon:  epsilon,
		Training: s.config.Training,
	})
	if err != nil {
		return results, fmt.Errorf("cycle %d world %s: %w", cycle, w.World.Name, err)
	}
	return results, nil
}

func (s *Session) export(path string, row stats.Row) error {
	if s.config.StatsDir == "" {
		return nil
	}
	if err := stats.Append(path, row); err != nil {
		return fmt.Errorf("exporting statistics: %w", err)
	}
	return nil
}

func (s *Session) plot(rows []stats.Row) error {
	if !s.config.Plot || s.config.StatsDir == "" || len(rows) == 0 {
		return nil
	}
	path := filepath.Join(s.config.StatsDir, "results.png")
	if err := stats.PlotCycles(s.config.Name, rows, path); err != nil {
		return fmt.Errorf("plotting statistics: %w", err)
	}
	s.logger.Info("chart saved", "path", path)
	return nil
}
