package orchestrator

import (
	"github.com/cardtable/spadesroom/pkg/deck"
	"github.com/cardtable/spadesroom/pkg/game"
	"github.com/cardtable/spadesroom/pkg/room"
)

// broadcastRoomUpdate emits room-update to every connected member, per
// §4.E.1: membership-level data only.
func (o *Orchestrator) broadcastRoomUpdate(code string) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	payload := roomUpdatePayload{
		RoomCode: r.Code,
		HostID:   r.HostID,
		GameMode: string(r.Mode),
		Started:  r.Started,
		Teams:    r.Teams,
	}
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		payload.Players = append(payload.Players, roomPlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Ready:     p.Ready,
			Connected: p.Connected,
		})
		if p.Connected {
			ids = append(ids, p.ID)
		}
	}

	// Dispatched before the lock releases, so the snapshot is built and
	// queued within one lock acquisition and snapshots reach each client in
	// the order they were taken. This acquisition is separate from the one
	// that made the change, so the snapshot may already include a later
	// transition.
	o.hub.Broadcast(ids, eventRoomUpdate, payload)
}

// broadcastGameState computes and sends a redacted game-state snapshot to
// every connected player individually, per §4.E.2. A no-op if the room has
// no game yet.
func (o *Orchestrator) broadcastGameState(code string) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return
	}
	for _, p := range r.Players {
		if !p.Connected {
			continue
		}
		snapshot := buildGameStatePayload(r.Game, p.Name)
		o.hub.SendTo(p.ID, eventGameState, snapshot)
	}
}

func buildGameStatePayload(g *game.Game, forPlayer string) gameStatePayload {
	hand := g.Hands[forPlayer]
	if g.Phase == game.PhaseNilPrompt {
		if _, decided := g.NilBids[forPlayer]; !decided {
			hand = nil
		}
	}

	otherCounts := make(map[string]int, len(g.PlayerOrder))
	for _, name := range g.PlayerOrder {
		if name == forPlayer {
			continue
		}
		otherCounts[name] = len(g.Hands[name])
	}

	nilBids := make(map[string]string, len(g.NilBids))
	for name, state := range g.NilBids {
		nilBids[name] = state.String()
	}

	return gameStatePayload{
		CurrentRound:      g.CurrentRound,
		Phase:             string(g.Phase),
		PlayerOrder:       g.PlayerOrder,
		DealerIndex:       g.DealerIndex,
		BiddingStartIndex: g.BiddingStartIndex,
		FirstLeadIndex:    g.FirstLeadIndex,
		CurrentPlayerIdx:  g.CurrentPlayerIdx,
		CurrentPlayer:     g.GetCurrentPlayer(),

		Hand:            hand,
		OtherHandCounts: otherCounts,

		Bids:      g.Bids,
		NilBids:   nilBids,
		TricksWon: g.TricksWon,

		CurrentTrick:    g.CurrentTrick,
		TrickNumber:     g.TrickNumber,
		LedSuit:         g.LedSuit,
		SpadesBroken:    g.SpadesBroken,
		LastTrickWinner: g.LastTrickWinner,

		Scores:       g.Scores,
		OvertrickBag: g.OvertrickBag,

		TeamScores:       teamMapOrNil(g, g.TeamScores),
		TeamOvertrickBag: teamMapOrNil(g, g.TeamOvertrickBag),

		GameOver: g.GameOver,
		Winner:   g.Winner,
	}
}

func teamMapOrNil(g *game.Game, m map[string]int) map[string]int {
	if g.Mode != game.ModeTeams {
		return nil
	}
	return m
}

func buildRoundEndPayload(g *game.Game) roundEndPayload {
	out := roundEndPayload{
		Round:        g.CurrentRound,
		RoundScores:  make(map[string]int),
		Scores:       g.Scores,
		Penalties:    make(map[string]bool),
		RoundHistory: g.RoundHistory,
	}
	for name, rows := range g.RoundHistory {
		if len(rows) == 0 {
			continue
		}
		last := rows[len(rows)-1]
		out.RoundScores[name] = last.RoundScore
		out.Penalties[name] = last.PenaltyApplied
	}

	if g.Mode == game.ModeTeams {
		out.TeamRoundScores = make(map[string]int)
		out.TeamScores = g.TeamScores
		out.TeamPenalties = make(map[string]bool)
		out.TeamRoundHistory = g.TeamRoundHistory
		for team, rows := range g.TeamRoundHistory {
			if len(rows) == 0 {
				continue
			}
			last := rows[len(rows)-1]
			out.TeamRoundScores[team] = last.RoundScore
			out.TeamPenalties[team] = last.PenaltyApplied
		}
	}
	return out
}

func buildTrickResultPayload(winner string, winningCard deck.Card, trick []game.TrickCard) trickResultPayload {
	return trickResultPayload{Winner: winner, WinningCard: winningCard, Trick: trick}
}

// connectedSessionIDs returns the session ids of every currently connected
// player in r. Caller must hold r.Mu.
func connectedSessionIDs(r *room.Room) []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
