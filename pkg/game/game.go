// Package game implements the round-by-round engine: dealing, the optional
// nil-decision round, bidding, trick play, and round/game scoring.
//
// Grounded on the teacher's pkg/poker/table.go betting-round state machine
// (track a current actor index, validate "is it your turn", advance or
// transition on completion) and pkg/poker/game.go's round lifecycle, adapted
// from poker streets to this game's eleven-round bid/play/score structure.
// Phase transitions here are plain mutating methods rather than another
// instance of pkg/statemachine's generic StateFn: a poker betting round
// advances on one condition (all-called-or-folded), but a round here has
// three independent triggers (nil decisions complete, bids complete, trick
// resolved) cascading through advancePhaseIfReady, which reads more plainly
// as a direct switch than as chained generic state functions. Player
// connection state in pkg/room reuses pkg/statemachine directly instead.
package game

import (
	"math/rand"
	"sort"

	"github.com/cardtable/spadesroom/pkg/deck"
	"github.com/cardtable/spadesroom/pkg/score"
)

// Phase is the game's current phase, exported as-is over the wire.
type Phase string

const (
	PhaseNilPrompt Phase = "nil_prompt"
	PhaseBidding   Phase = "bidding"
	PhasePlaying   Phase = "playing"
	PhaseRoundEnd  Phase = "round_end"
	PhaseGameOver  Phase = "game_over"
)

// Mode selects individual or team scoring.
type Mode string

const (
	ModeIndividual Mode = "individual"
	ModeTeams      Mode = "teams"
)

// NilRoundThreshold is the first round (1-indexed) in which nil bidding is
// offered.
const NilRoundThreshold = 10

// TotalRounds is the fixed number of rounds in a game.
const TotalRounds = 11

// TrickCard is one play within the current trick, in play order.
type TrickCard struct {
	Player string    `json:"player"`
	Card   deck.Card `json:"card"`
}

// Game is the full, unredacted state of one table's play. Per-player hand
// redaction for the wire happens in the orchestrator, not here.
type Game struct {
	Mode  Mode                `json:"mode"`
	Teams map[string][]string `json:"teams,omitempty"`

	PlayerOrder []string `json:"playerOrder"`

	CurrentRound      int `json:"currentRound"`
	DealerIndex       int `json:"dealerIndex"`
	BiddingStartIndex int `json:"biddingStartIndex"`
	FirstLeadIndex    int `json:"firstLeadIndex"`
	CurrentPlayerIdx  int `json:"currentPlayerIndex"`

	Phase Phase `json:"phase"`

	Hands     map[string][]deck.Card    `json:"hands"`
	Bids      map[string]int            `json:"bids"`
	NilBids   map[string]score.NilState `json:"nilBids"`
	TricksWon map[string]int            `json:"tricksWon"`

	CurrentTrick    []TrickCard `json:"currentTrick"`
	TrickNumber     int         `json:"trickNumber"`
	LedSuit         deck.Suit   `json:"ledSuit"`
	SpadesBroken    bool        `json:"spadesBroken"`
	LastTrickWinner string      `json:"lastTrickWinner"`

	Scores       map[string]int            `json:"scores"`
	OvertrickBag map[string]int            `json:"overtrickBag"`
	RoundHistory map[string][]score.RoundRow `json:"roundHistory"`

	TeamScores       map[string]int              `json:"teamScores,omitempty"`
	TeamOvertrickBag map[string]int              `json:"teamOvertrickBag,omitempty"`
	TeamRoundHistory map[string][]score.RoundRow `json:"teamRoundHistory,omitempty"`

	GameOver bool          `json:"gameOver"`
	Winner   *score.Winner `json:"winner,omitempty"`

	rng *rand.Rand
}

// NewGame builds a fresh Game ready for its first StartRound call. teams is
// nil/empty for ModeIndividual; for ModeTeams it maps team name to member
// names and every name in playerOrder must appear in exactly one team.
func NewGame(playerOrder []string, mode Mode, teams map[string][]string, rng *rand.Rand) *Game {
	g := &Game{
		Mode:             mode,
		Teams:            teams,
		PlayerOrder:      append([]string(nil), playerOrder...),
		CurrentRound:     1,
		Phase:            PhaseNilPrompt,
		Hands:            make(map[string][]deck.Card),
		Bids:             make(map[string]int),
		NilBids:          make(map[string]score.NilState),
		TricksWon:        make(map[string]int),
		Scores:           make(map[string]int),
		OvertrickBag:     make(map[string]int),
		RoundHistory:     make(map[string][]score.RoundRow),
		TeamScores:       make(map[string]int),
		TeamOvertrickBag: make(map[string]int),
		TeamRoundHistory: make(map[string][]score.RoundRow),
		rng:              rng,
	}
	for _, p := range playerOrder {
		g.Scores[p] = 0
		g.OvertrickBag[p] = 0
	}
	if mode == ModeTeams {
		for team := range teams {
			g.TeamScores[team] = 0
			g.TeamOvertrickBag[team] = 0
		}
	}
	return g
}

func (g *Game) playerCount() int {
	return len(g.PlayerOrder)
}

func (g *Game) indexOf(player string) int {
	for i, p := range g.PlayerOrder {
		if p == player {
			return i
		}
	}
	return -1
}

// GetCurrentPlayer returns the player name whose turn it is, valid during
// Bidding and Playing. Undefined (but harmless) in other phases.
func (g *Game) GetCurrentPlayer() string {
	if g.CurrentPlayerIdx < 0 || g.CurrentPlayerIdx >= g.playerCount() {
		return ""
	}
	return g.PlayerOrder[g.CurrentPlayerIdx]
}

// StartRound deals CurrentRound cards to every player and opens either the
// nil-decision phase (round >= NilRoundThreshold) or bidding directly.
func (g *Game) StartRound() error {
	if g.GameOver {
		return errGameOver()
	}

	n := g.playerCount()
	hands, err := deck.Deal(g.PlayerOrder, g.CurrentRound, g.rng)
	if err != nil {
		return err
	}
	g.Hands = hands
	g.Bids = make(map[string]int)
	g.NilBids = make(map[string]score.NilState)
	g.TricksWon = make(map[string]int)
	g.CurrentTrick = nil
	g.TrickNumber = 0
	g.LedSuit = ""
	g.SpadesBroken = false

	g.DealerIndex = (g.CurrentRound - 1) % n
	g.BiddingStartIndex = (g.DealerIndex + 1) % n
	if g.LastTrickWinner != "" {
		g.FirstLeadIndex = g.indexOf(g.LastTrickWinner)
	} else {
		g.FirstLeadIndex = g.BiddingStartIndex
	}

	if g.CurrentRound >= NilRoundThreshold {
		g.Phase = PhaseNilPrompt
		g.CurrentPlayerIdx = g.BiddingStartIndex
	} else {
		g.Phase = PhaseBidding
		g.CurrentPlayerIdx = g.BiddingStartIndex
	}
	return nil
}

// NilDecision records player's decision to go nil or see their cards. Valid
// only during PhaseNilPrompt; decisions are simultaneous, not turn-ordered.
func (g *Game) NilDecision(player string, goNil bool) error {
	if g.Phase != PhaseNilPrompt {
		return errWrongPhase("nilDecision", g.Phase)
	}
	if g.indexOf(player) < 0 {
		return errUnknownPlayer(player)
	}
	if _, decided := g.NilBids[player]; decided {
		return errAlreadyDecided(player)
	}

	if goNil {
		g.NilBids[player] = score.WentNil
		g.Bids[player] = 0
	} else {
		g.NilBids[player] = score.SawCards
	}

	g.advancePhaseIfReady()
	return nil
}

func (g *Game) allNilDecided() bool {
	return len(g.NilBids) == g.playerCount()
}

func (g *Game) allBidsIn() bool {
	return len(g.Bids) == g.playerCount()
}

// findNextBidder returns the index of the first player starting at start
// (inclusive, wrapping) who has not gone nil. Falls back to start if every
// player went nil.
func (g *Game) findNextBidder(start int) int {
	n := g.playerCount()
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if g.NilBids[g.PlayerOrder[idx]] != score.WentNil {
			return idx
		}
	}
	return start
}

// findNextUnbid returns the index of the first player after start (wrapping,
// with start itself checked last) who has no bid recorded yet, or -1 if
// everyone has bid.
func (g *Game) findNextUnbid(start int) int {
	n := g.playerCount()
	for i := 1; i <= n; i++ {
		idx := (start + i) % n
		if _, ok := g.Bids[g.PlayerOrder[idx]]; !ok {
			return idx
		}
	}
	return -1
}

func (g *Game) advancePhaseIfReady() {
	if g.Phase == PhaseNilPrompt && g.allNilDecided() {
		g.Phase = PhaseBidding
		g.CurrentPlayerIdx = g.findNextBidder(g.BiddingStartIndex)
	}
	if g.Phase == PhaseBidding && g.allBidsIn() {
		g.Phase = PhasePlaying
		g.CurrentTrick = nil
		g.LedSuit = ""
		g.CurrentPlayerIdx = g.FirstLeadIndex
	}
}

// PlaceBid records player's bid for the round. Valid only during PhaseBidding
// and only for the current player; nil players never reach here since their
// bid of 0 is already recorded by NilDecision.
func (g *Game) PlaceBid(player string, bid int) error {
	if g.Phase != PhaseBidding {
		return errWrongPhase("placeBid", g.Phase)
	}
	if g.GetCurrentPlayer() != player {
		return errNotYourTurn(player)
	}
	if _, already := g.Bids[player]; already {
		return errAlreadyBid(player)
	}
	if bid < 0 || bid > g.CurrentRound {
		return errBidOutOfRange(bid, g.CurrentRound)
	}

	g.Bids[player] = bid

	if next := g.findNextUnbid(g.CurrentPlayerIdx); next >= 0 {
		g.CurrentPlayerIdx = next
	}
	g.advancePhaseIfReady()
	return nil
}

func handContainsSuit(hand []deck.Card, suit deck.Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

func removeCard(hand []deck.Card, cardID int) ([]deck.Card, deck.Card, bool) {
	for i, c := range hand {
		if c.ID == cardID {
			out := append(append([]deck.Card(nil), hand[:i]...), hand[i+1:]...)
			return out, c, true
		}
	}
	return hand, deck.Card{}, false
}

// PlayCard plays cardID from player's hand into the current trick. Valid
// only during PhasePlaying and only for the current player. The card must
// follow the led suit if the player holds one; otherwise any card, including
// a spade, is legal (this variant does not restrict leading a spade before
// it's broken, only following suit).
func (g *Game) PlayCard(player string, cardID int) error {
	if g.Phase != PhasePlaying {
		return errWrongPhase("playCard", g.Phase)
	}
	if g.GetCurrentPlayer() != player {
		return errNotYourTurn(player)
	}

	hand := g.Hands[player]
	leading := len(g.CurrentTrick) == 0
	if !leading && handContainsSuit(hand, g.LedSuit) {
		_, card, found := removeCard(hand, cardID)
		if !found {
			return errCardNotInHand(player, cardID)
		}
		if card.Suit != g.LedSuit {
			return errMustFollowSuit(string(g.LedSuit))
		}
	}

	newHand, card, found := removeCard(hand, cardID)
	if !found {
		return errCardNotInHand(player, cardID)
	}
	g.Hands[player] = newHand
	g.CurrentTrick = append(g.CurrentTrick, TrickCard{Player: player, Card: card})

	if leading {
		g.LedSuit = card.Suit
	}
	if card.Suit == deck.Spades {
		g.SpadesBroken = true
	}

	if len(g.CurrentTrick) == g.playerCount() {
		// Trick is full; ResolveTrick (scheduled by the orchestrator for UX
		// pacing) decides the next current player.
		return nil
	}
	g.CurrentPlayerIdx = (g.CurrentPlayerIdx + 1) % g.playerCount()
	return nil
}

// ResolveTrick scores the completed trick: the winner is whoever's card beats
// every other card played, folded left to right with deck.CompareForTrick.
// currentTrick and ledSuit are always cleared; currentPlayerIndex advances to
// the winner only if more tricks remain this round — when this was the
// round's last trick, the caller is expected to follow up with ResolveRound.
func (g *Game) ResolveTrick() error {
	if g.Phase != PhasePlaying {
		return errWrongPhase("resolveTrick", g.Phase)
	}
	if len(g.CurrentTrick) != g.playerCount() {
		return errTrickNotFull()
	}

	winner := g.CurrentTrick[0]
	for _, tc := range g.CurrentTrick[1:] {
		if deck.CompareForTrick(tc.Card, winner.Card, g.LedSuit) {
			winner = tc
		}
	}

	g.TricksWon[winner.Player]++
	g.LastTrickWinner = winner.Player
	g.TrickNumber++
	g.CurrentTrick = nil
	g.LedSuit = ""

	if g.TrickNumber < g.CurrentRound {
		g.CurrentPlayerIdx = g.indexOf(winner.Player)
	}
	return nil
}

func (g *Game) teamOf(player string) string {
	for team, members := range g.Teams {
		for _, m := range members {
			if m == player {
				return team
			}
		}
	}
	return ""
}

// ResolveRound scores the round (individually or by team, per Mode), records
// history, and either advances CurrentRound awaiting the host's NextRound
// call or, after round 11, ends the game and computes the winner.
func (g *Game) ResolveRound() error {
	if g.Phase != PhasePlaying {
		return errWrongPhase("resolveRound", g.Phase)
	}
	if g.TrickNumber != g.CurrentRound {
		return errRoundNotOver()
	}

	if g.Mode == ModeTeams {
		g.resolveRoundTeams()
	} else {
		g.resolveRoundIndividual()
	}

	g.Phase = PhaseRoundEnd
	if g.CurrentRound == TotalRounds {
		g.GameOver = true
		g.Phase = PhaseGameOver
		g.computeWinner()
	} else {
		g.CurrentRound++
	}
	return nil
}

func (g *Game) resolveRoundIndividual() {
	for _, p := range g.PlayerOrder {
		bid := g.Bids[p]
		nilBid := g.NilBids[p]
		tricks := g.TricksWon[p]

		roundScore, overtricks := score.RoundOutcome(bid, nilBid, tricks)
		before := g.Scores[p]
		after, penalized := score.ApplyDenominatorPenalty(before, roundScore)

		g.Scores[p] = after
		g.OvertrickBag[p] += overtricks
		g.RoundHistory[p] = append(g.RoundHistory[p], score.RoundRow{
			Round:          g.CurrentRound,
			Bid:            bid,
			NilBid:         nilBid,
			TricksWon:      tricks,
			RoundScore:     roundScore,
			Overtricks:     overtricks,
			TotalBefore:    before,
			TotalAfter:     after,
			PenaltyApplied: penalized,
		})
	}
}

func (g *Game) resolveRoundTeams() {
	for team, members := range g.Teams {
		in := score.TeamInputs{}
		for _, p := range members {
			if g.NilBids[p] == score.WentNil {
				in.NilOutcomes = append(in.NilOutcomes, score.NilMemberOutcome{
					PlayerName: p,
					TricksWon:  g.TricksWon[p],
				})
			} else {
				in.NonNilBids = append(in.NonNilBids, g.Bids[p])
				in.NonNilTricksWon = append(in.NonNilTricksWon, g.TricksWon[p])
			}
		}

		roundScore, overtricks := score.TeamRoundOutcome(in)
		before := g.TeamScores[team]
		after, penalized := score.ApplyDenominatorPenalty(before, roundScore)
		g.TeamScores[team] = after
		g.TeamOvertrickBag[team] += overtricks
		g.TeamRoundHistory[team] = append(g.TeamRoundHistory[team], score.RoundRow{
			Round:          g.CurrentRound,
			RoundScore:     roundScore,
			Overtricks:     overtricks,
			TotalBefore:    before,
			TotalAfter:     after,
			PenaltyApplied: penalized,
		})

		// Per-player rows for display; the team total above is what
		// actually decides standings.
		for _, p := range members {
			bid := g.Bids[p]
			nilBid := g.NilBids[p]
			tricks := g.TricksWon[p]
			rs, ot := score.RoundOutcome(bid, nilBid, tricks)
			g.RoundHistory[p] = append(g.RoundHistory[p], score.RoundRow{
				Round:          g.CurrentRound,
				Bid:            bid,
				NilBid:         nilBid,
				TricksWon:      tricks,
				RoundScore:     rs,
				Overtricks:     ot,
				TotalBefore:    before,
				TotalAfter:     after,
				PenaltyApplied: penalized,
			})
		}
	}
}

func (g *Game) computeWinner() {
	if g.Mode == ModeTeams {
		teamNames := make([]string, 0, len(g.Teams))
		for team := range g.Teams {
			teamNames = append(teamNames, team)
		}
		sort.Strings(teamNames)
		w, err := score.SelectWinner(teamNames, g.TeamScores, score.TeamWinner)
		if err == nil {
			g.Winner = &w
		}
		return
	}
	w, err := score.SelectWinner(g.PlayerOrder, g.Scores, score.IndividualWinner)
	if err == nil {
		g.Winner = &w
	}
}

// RemovePlayer drops name from the game entirely (an explicit mid-game leave,
// as opposed to a disconnect): it removes the player from playerOrder and
// every per-player map, and clamps currentPlayerIndex back into range.
func (g *Game) RemovePlayer(name string) {
	idx := g.indexOf(name)
	if idx < 0 {
		return
	}

	g.PlayerOrder = append(g.PlayerOrder[:idx], g.PlayerOrder[idx+1:]...)
	delete(g.Hands, name)
	delete(g.Bids, name)
	delete(g.NilBids, name)
	delete(g.TricksWon, name)
	delete(g.Scores, name)
	delete(g.OvertrickBag, name)
	delete(g.RoundHistory, name)

	n := g.playerCount()
	if n == 0 {
		g.CurrentPlayerIdx = 0
		return
	}
	switch {
	case g.CurrentPlayerIdx > idx:
		g.CurrentPlayerIdx--
	case g.CurrentPlayerIdx == idx:
		g.CurrentPlayerIdx %= n
	}
}

// NextRound advances from PhaseRoundEnd into the next round's deal. It is the
// host-triggered step the diagram shows as "wait for host's next-round
// trigger".
func (g *Game) NextRound() error {
	if g.GameOver {
		return errGameOver()
	}
	if g.Phase != PhaseRoundEnd {
		return errWrongPhase("nextRound", g.Phase)
	}
	return g.StartRound()
}
