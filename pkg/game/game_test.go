package game

import (
	"math/rand"
	"testing"

	"github.com/cardtable/spadesroom/pkg/score"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, round int) *Game {
	t.Helper()
	g := NewGame([]string{"A", "B", "C", "D"}, ModeIndividual, nil, rand.New(rand.NewSource(1)))
	g.CurrentRound = round
	require.NoError(t, g.StartRound())
	return g
}

// legalCard returns the first card in player's hand that follows the led
// suit, or the first card when leading or void in that suit.
func legalCard(g *Game, player string) int {
	hand := g.Hands[player]
	if len(g.CurrentTrick) > 0 {
		for _, c := range hand {
			if c.Suit == g.LedSuit {
				return c.ID
			}
		}
	}
	return hand[0].ID
}

func TestStartRoundBelowNilThresholdGoesStraightToBidding(t *testing.T) {
	g := newTestGame(t, 3)
	require.Equal(t, PhaseBidding, g.Phase)
	for _, p := range g.PlayerOrder {
		require.Len(t, g.Hands[p], 3)
	}
}

func TestStartRoundAtNilThresholdOpensNilPrompt(t *testing.T) {
	g := newTestGame(t, 10)
	require.Equal(t, PhaseNilPrompt, g.Phase)
}

func TestNilDecisionAdvancesToBiddingOnceAllDecided(t *testing.T) {
	g := newTestGame(t, 10)
	require.NoError(t, g.NilDecision("A", false))
	require.NoError(t, g.NilDecision("B", true))
	require.Equal(t, PhaseNilPrompt, g.Phase)
	require.NoError(t, g.NilDecision("C", false))
	require.NoError(t, g.NilDecision("D", false))
	require.Equal(t, PhaseBidding, g.Phase)

	require.Equal(t, 0, g.Bids["B"])
	require.Equal(t, score.WentNil, g.NilBids["B"])
	// B went nil and already has a fixed bid of 0, so bidding must skip B
	// entirely.
	require.NotEqual(t, "B", g.GetCurrentPlayer())
}

func TestPlaceBidRejectsOutOfTurn(t *testing.T) {
	g := newTestGame(t, 3)
	cur := g.GetCurrentPlayer()
	var other string
	for _, p := range g.PlayerOrder {
		if p != cur {
			other = p
			break
		}
	}
	err := g.PlaceBid(other, 1)
	require.Error(t, err)
}

func TestPlaceBidRejectsOutOfRange(t *testing.T) {
	g := newTestGame(t, 3)
	cur := g.GetCurrentPlayer()
	err := g.PlaceBid(cur, 4)
	require.Error(t, err)
}

func TestBiddingCompletesAndOpensPlaying(t *testing.T) {
	g := newTestGame(t, 3)
	for i := 0; i < 4; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 1))
	}
	require.Equal(t, PhasePlaying, g.Phase)
	require.Equal(t, g.PlayerOrder[g.FirstLeadIndex], g.GetCurrentPlayer())
}

func TestPlayCardRejectsCardNotInHand(t *testing.T) {
	g := newTestGame(t, 3)
	for i := 0; i < 4; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 1))
	}
	cur := g.GetCurrentPlayer()
	err := g.PlayCard(cur, 999999)
	require.Error(t, err)
}

func TestPlayCardMustFollowSuitWhenHoldingIt(t *testing.T) {
	g := newTestGame(t, 3)
	for i := 0; i < 4; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 1))
	}
	leader := g.GetCurrentPlayer()
	require.NoError(t, g.PlayCard(leader, g.Hands[leader][0].ID))
	ledSuit := g.LedSuit

	next := g.GetCurrentPlayer()
	hand := g.Hands[next]
	var followCard, offSuitCard *int
	for i, c := range hand {
		if c.Suit == ledSuit && followCard == nil {
			id := c.ID
			followCard = &id
		}
		if c.Suit != ledSuit && offSuitCard == nil {
			id := c.ID
			offSuitCard = &id
		}
		_ = i
	}
	if followCard != nil && offSuitCard != nil {
		err := g.PlayCard(next, *offSuitCard)
		require.Error(t, err)
		require.NoError(t, g.PlayCard(next, *followCard))
	}
}

func TestFullTrickAndRoundResolution(t *testing.T) {
	g := newTestGame(t, 1)
	for i := 0; i < 4; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 0))
	}
	require.Equal(t, PhasePlaying, g.Phase)

	for i := 0; i < 4; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlayCard(cur, g.Hands[cur][0].ID))
	}
	require.Len(t, g.CurrentTrick, 4)

	require.NoError(t, g.ResolveTrick())
	require.Empty(t, g.CurrentTrick)
	require.Equal(t, 1, g.TrickNumber)

	require.NoError(t, g.ResolveRound())
	require.Equal(t, PhaseRoundEnd, g.Phase)
	require.Equal(t, 2, g.CurrentRound)

	for _, p := range g.PlayerOrder {
		require.Len(t, g.RoundHistory[p], 1)
	}
}

func TestGameEndsAfterRoundEleven(t *testing.T) {
	g := NewGame([]string{"A", "B"}, ModeIndividual, nil, rand.New(rand.NewSource(2)))
	g.CurrentRound = TotalRounds
	require.NoError(t, g.StartRound())
	require.NoError(t, g.NilDecision("A", false))
	require.NoError(t, g.NilDecision("B", false))

	for i := 0; i < 2; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 0))
	}
	for trick := 0; trick < TotalRounds; trick++ {
		for i := 0; i < 2; i++ {
			cur := g.GetCurrentPlayer()
			require.NoError(t, g.PlayCard(cur, legalCard(g, cur)))
		}
		require.NoError(t, g.ResolveTrick())
	}
	require.NoError(t, g.ResolveRound())
	require.True(t, g.GameOver)
	require.Equal(t, PhaseGameOver, g.Phase)
	require.NotNil(t, g.Winner)
}

func TestCardConservationInvariant(t *testing.T) {
	g := newTestGame(t, 5)
	n := g.playerCount()
	for i := 0; i < n; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 1))
	}

	checkInvariant := func() {
		total := len(g.CurrentTrick)
		for _, p := range g.PlayerOrder {
			total += len(g.Hands[p])
		}
		total += g.TrickNumber * n
		require.Equal(t, g.CurrentRound*n, total)
	}

	checkInvariant()
	for trick := 0; trick < 5; trick++ {
		for i := 0; i < n; i++ {
			cur := g.GetCurrentPlayer()
			require.NoError(t, g.PlayCard(cur, legalCard(g, cur)))
			checkInvariant()
		}
		require.NoError(t, g.ResolveTrick())
		checkInvariant()
	}
}

func TestTeamModeCombinesNonNilAndNilMembers(t *testing.T) {
	teams := map[string][]string{
		"red":  {"A", "C"},
		"blue": {"B", "D"},
	}
	g := NewGame([]string{"A", "B", "C", "D"}, ModeTeams, teams, rand.New(rand.NewSource(3)))
	g.CurrentRound = 10
	require.NoError(t, g.StartRound())
	require.Equal(t, PhaseNilPrompt, g.Phase)

	require.NoError(t, g.NilDecision("A", false))
	require.NoError(t, g.NilDecision("B", false))
	require.NoError(t, g.NilDecision("C", true))
	require.NoError(t, g.NilDecision("D", false))
	require.Equal(t, PhaseBidding, g.Phase)

	for i := 0; i < 3; i++ {
		cur := g.GetCurrentPlayer()
		require.NoError(t, g.PlaceBid(cur, 1))
	}
	require.Equal(t, PhasePlaying, g.Phase)

	for trick := 0; trick < 10; trick++ {
		for i := 0; i < 4; i++ {
			cur := g.GetCurrentPlayer()
			require.NoError(t, g.PlayCard(cur, legalCard(g, cur)))
		}
		require.NoError(t, g.ResolveTrick())
	}
	require.NoError(t, g.ResolveRound())

	require.Contains(t, g.TeamScores, "red")
	require.Contains(t, g.TeamScores, "blue")
	require.Len(t, g.TeamRoundHistory["red"], 1)
}

func TestNextRoundRequiresRoundEndPhase(t *testing.T) {
	g := newTestGame(t, 1)
	err := g.NextRound()
	require.Error(t, err)
}
