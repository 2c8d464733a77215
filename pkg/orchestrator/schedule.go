package orchestrator

import (
	"time"

	"github.com/cardtable/spadesroom/pkg/deck"
	"github.com/cardtable/spadesroom/pkg/game"
	"github.com/cardtable/spadesroom/pkg/room"
)

// resolveTrickLocked resolves a full trick in place. Caller must hold
// r.Mu. Returns ok=false if there is no game or the trick isn't actually
// full (a stale callback racing a reset or a second resolution attempt).
func resolveTrickLocked(r *room.Room) (result *trickResultPayload, roundOver bool, ok bool) {
	g := r.Game
	if g == nil || g.Phase != game.PhasePlaying {
		return nil, false, false
	}
	n := len(g.PlayerOrder)
	if n == 0 || len(g.CurrentTrick) != n {
		return nil, false, false
	}

	trick := append([]game.TrickCard(nil), g.CurrentTrick...)
	if err := g.ResolveTrick(); err != nil {
		return nil, false, false
	}

	var winningCard deck.Card
	for _, tc := range trick {
		if tc.Player == g.LastTrickWinner {
			winningCard = tc.Card
			break
		}
	}
	payload := buildTrickResultPayload(g.LastTrickWinner, winningCard, trick)
	return &payload, g.TrickNumber == g.CurrentRound, true
}

// resolveRoundLocked scores the just-completed round. Caller must hold
// r.Mu. Returns ok=false if there is no game or the round's tricks aren't
// all resolved yet.
func resolveRoundLocked(r *room.Room) (*roundEndPayload, bool) {
	g := r.Game
	if g == nil {
		return nil, false
	}
	if err := g.ResolveRound(); err != nil {
		return nil, false
	}
	payload := buildRoundEndPayload(g)
	return &payload, true
}

// resolveTrick is the scheduled callback fired trickResolveDelay after a
// trick fills, per §4.E. A no-op if the room or trick is gone by the time it
// fires.
func (o *Orchestrator) resolveTrick(code string) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	r.Mu.Lock()
	result, roundOver, ok := resolveTrickLocked(r)
	if !ok {
		r.Mu.Unlock()
		return
	}
	ids := connectedSessionIDs(r)
	o.hub.Broadcast(ids, eventTrickResult, *result)
	r.Mu.Unlock()

	if roundOver {
		time.AfterFunc(roundEndDelay, func() { o.resolveRound(code) })
		return
	}
	time.AfterFunc(nextTrickDelay, func() {
		o.broadcastGameState(code)
		o.scheduleDisconnectCheck(code, disconnectTurnDelay)
	})
}

// resolveRound is the scheduled callback fired roundEndDelay after the
// round's last trick resolves.
func (o *Orchestrator) resolveRound(code string) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	r.Mu.Lock()
	result, ok := resolveRoundLocked(r)
	if !ok {
		r.Mu.Unlock()
		return
	}
	ids := connectedSessionIDs(r)
	o.hub.Broadcast(ids, eventRoundEnd, *result)
	r.Mu.Unlock()

	o.broadcastGameState(code)
	o.scheduleDisconnectCheck(code, disconnectTurnDelay)
}

// scheduleDisconnectCheck arranges for handleDisconnectedTurn to run after
// delay, starting a fresh bounded auto-progress chain.
func (o *Orchestrator) scheduleDisconnectCheck(code string, delay time.Duration) {
	time.AfterFunc(delay, func() { o.handleDisconnectedTurn(code, 0) })
}

// handleDisconnectedTurn implements §4.E's auto-progress: if the current
// actor (or, in NilPrompt, any undecided player) is disconnected, it acts on
// their behalf, then reschedules itself to check again. depth bounds the
// chain at one pass per player, per the "|players| iterations" safety bound.
func (o *Orchestrator) handleDisconnectedTurn(code string, depth int) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}

	r.Mu.Lock()
	g := r.Game
	if g == nil || g.GameOver || depth >= len(g.PlayerOrder) {
		r.Mu.Unlock()
		return
	}

	var acted bool
	switch g.Phase {
	case game.PhaseNilPrompt:
		acted = autoDeclineDisconnectedNils(r)
	case game.PhaseBidding:
		acted = autoBidCurrentActor(r)
	case game.PhasePlaying:
		acted = autoPlayCurrentActor(r)
	}

	if !acted {
		r.Mu.Unlock()
		return
	}

	if g.Phase == game.PhasePlaying {
		if tr, roundOver, ok := resolveTrickLocked(r); ok {
			ids := connectedSessionIDs(r)
			o.hub.Broadcast(ids, eventTrickResult, *tr)
			if roundOver {
				if re, ok := resolveRoundLocked(r); ok {
					o.hub.Broadcast(ids, eventRoundEnd, *re)
				}
			}
		}
	}
	r.Mu.Unlock()

	o.broadcastGameState(code)
	time.AfterFunc(disconnectTurnDelay, func() { o.handleDisconnectedTurn(code, depth+1) })
}

// autoDeclineDisconnectedNils sets nilBids=false for every disconnected
// player who hasn't decided yet (nil decisions are simultaneous, not
// turn-ordered, so every undecided disconnected player is actionable at
// once rather than just "the current actor"). Caller must hold r.Mu.
func autoDeclineDisconnectedNils(r *room.Room) bool {
	acted := false
	for _, p := range r.Players {
		if p.Connected {
			continue
		}
		if _, decided := r.Game.NilBids[p.Name]; decided {
			continue
		}
		if err := r.Game.NilDecision(p.Name, false); err == nil {
			acted = true
		}
	}
	return acted
}

// autoBidCurrentActor bids 0 on behalf of the current player if they are
// disconnected. Caller must hold r.Mu.
func autoBidCurrentActor(r *room.Room) bool {
	cur := r.Game.GetCurrentPlayer()
	p, found := r.PlayerByName(cur)
	if !found || p.Connected {
		return false
	}
	return r.Game.PlaceBid(cur, 0) == nil
}

// autoPlayCurrentActor plays the first legal card from the current player's
// hand if they are disconnected. Caller must hold r.Mu.
func autoPlayCurrentActor(r *room.Room) bool {
	cur := r.Game.GetCurrentPlayer()
	p, found := r.PlayerByName(cur)
	if !found || p.Connected {
		return false
	}
	cardID, ok := firstLegalCard(r.Game, r.Game.Hands[cur])
	if !ok {
		return false
	}
	return r.Game.PlayCard(cur, cardID) == nil
}

// firstLegalCard picks the first card in hand that satisfies the
// follow-suit rule: any card while leading, otherwise the first card of
// ledSuit if held, else any card.
func firstLegalCard(g *game.Game, hand []deck.Card) (int, bool) {
	if len(hand) == 0 {
		return 0, false
	}
	if len(g.CurrentTrick) == 0 {
		return hand[0].ID, true
	}
	for _, c := range hand {
		if c.Suit == g.LedSuit {
			return c.ID, true
		}
	}
	return hand[0].ID, true
}
