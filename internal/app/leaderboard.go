package app

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"rounds-service/internal/domain"
	"rounds-service/internal/gateway"
)

// LeaderboardService aggregates every participant's attempts into one ranked
// board. Admin score overrides always beat auto scores; ranking is highest
// total score first, total time breaking ties (faster wins).
type LeaderboardService struct {
	gw  *gateway.Gateway
	now func() time.Time
}

func NewLeaderboardService(gw *gateway.Gateway) *LeaderboardService {
	return &LeaderboardService{gw: gw, now: time.Now}
}

func (s *LeaderboardService) Build(ctx context.Context) (domain.Leaderboard, error) {
	var (
		users    []domain.Participant
		attempts []domain.Attempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.gw.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.gw.ListAttempts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Leaderboard{}, err
	}

	byID := make(map[string]domain.Attempt, len(attempts))
	for _, a := range attempts {
		byID[a.ID] = a
	}

	rows := make([]domain.LeaderboardRow, 0, len(users))
	for _, u := range users {
		if u.Role == domain.RoleAdmin {
			continue
		}
		row := domain.LeaderboardRow{
			ParticipantID: u.ID,
			Name:          u.Name,
			Team:          u.Team,
			Rounds:        make(map[string]domain.RoundScore, len(domain.RoundIDs)),
		}
		for _, roundID := range domain.RoundIDs {
			attempt, ok := byID[domain.AttemptID(u.ID, roundID)]
			if !ok {
				row.Rounds[roundID] = domain.RoundScore{}
				continue
			}
			cell := domain.RoundScore{}
			if score, ok := attempt.EffectiveScore(); ok {
				cell.Score = &score
				row.TotalScore += score
			}
			if attempt.TimeTaken > 0 {
				t := attempt.TimeTaken
				cell.TimeTaken = &t
				row.TotalTime += t
			}
			row.Rounds[roundID] = cell
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].TotalTime < rows[j].TotalTime
	})

	return domain.Leaderboard{Rows: rows, UpdatedAt: s.now().UnixMilli()}, nil
}
