package deck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDoubleDeckHas104UniqueIDs(t *testing.T) {
	cards := BuildDoubleDeck()
	require.Len(t, cards, 104)

	seen := make(map[int]bool, 104)
	for _, c := range cards {
		require.False(t, seen[c.ID], "duplicate id %d", c.ID)
		seen[c.ID] = true
	}

	pairCounts := make(map[Suit]map[Rank]int)
	for _, c := range cards {
		if pairCounts[c.Suit] == nil {
			pairCounts[c.Suit] = make(map[Rank]int)
		}
		pairCounts[c.Suit][c.Rank]++
	}
	for _, byRank := range pairCounts {
		for _, count := range byRank {
			require.Equal(t, 2, count)
		}
	}
}

func TestShuffleIsAPermutation(t *testing.T) {
	cards := BuildDoubleDeck()
	shuffled := make([]Card, len(cards))
	copy(shuffled, cards)

	rng := rand.New(rand.NewSource(7))
	Shuffle(shuffled, rng)

	require.ElementsMatch(t, cards, shuffled)
}

func TestDealGivesEachPlayerNCardsWithNoOverlap(t *testing.T) {
	players := []string{"A", "B", "C", "D"}
	for round := 1; round <= 11; round++ {
		rng := rand.New(rand.NewSource(int64(round)))
		hands, err := Deal(players, round, rng)
		require.NoError(t, err)

		seen := make(map[int]bool)
		for _, p := range players {
			require.Len(t, hands[p], round)
			for _, c := range hands[p] {
				require.False(t, seen[c.ID])
				seen[c.ID] = true
			}
		}
		require.Len(t, seen, round*len(players))
	}
}

func TestDealRejectsOversizedRequest(t *testing.T) {
	players := []string{"A", "B"}
	rng := rand.New(rand.NewSource(1))
	_, err := Deal(players, 60, rng)
	require.Error(t, err)
}

func TestSortHandOrdering(t *testing.T) {
	hand := []Card{
		{Suit: Clubs, Rank: Ace, Value: 14},
		{Suit: Spades, Rank: Two, Value: 2},
		{Suit: Hearts, Rank: King, Value: 13},
		{Suit: Spades, Rank: Ace, Value: 14},
	}
	sorted := SortHand(hand)
	require.Equal(t, Spades, sorted[0].Suit)
	require.Equal(t, Ace, sorted[0].Rank)
	require.Equal(t, Spades, sorted[1].Suit)
	require.Equal(t, Two, sorted[1].Rank)
	require.Equal(t, Hearts, sorted[2].Suit)
	require.Equal(t, Clubs, sorted[3].Suit)
}

func TestCompareForTrickSpadeTrumps(t *testing.T) {
	spade2 := Card{Suit: Spades, Rank: Two, Value: 2}
	heartsK := Card{Suit: Hearts, Rank: King, Value: 13}
	require.True(t, CompareForTrick(spade2, heartsK, Hearts))
	require.False(t, CompareForTrick(heartsK, spade2, Hearts))
}

func TestCompareForTrickFollowSuit(t *testing.T) {
	heartsK := Card{Suit: Hearts, Rank: King, Value: 13}
	hearts5 := Card{Suit: Hearts, Rank: Five, Value: 5}
	clubsA := Card{Suit: Clubs, Rank: Ace, Value: 14}
	require.True(t, CompareForTrick(heartsK, hearts5, Hearts))
	require.False(t, CompareForTrick(clubsA, hearts5, Hearts))
}

func TestCompareForTrickTieBreaksToLaterCard(t *testing.T) {
	a := Card{ID: 0, Suit: Hearts, Rank: King, Value: 13, DeckNum: 0}
	b := Card{ID: 1, Suit: Hearts, Rank: King, Value: 13, DeckNum: 1}
	// Folding left-to-right, b arrives after a and should win the tie.
	require.True(t, CompareForTrick(b, a, Hearts))
}

func TestCompareForTrickTransitiveWithinLedSuit(t *testing.T) {
	low := Card{Suit: Diamonds, Rank: Two, Value: 2}
	mid := Card{Suit: Diamonds, Rank: Seven, Value: 7}
	high := Card{Suit: Diamonds, Rank: Ace, Value: 14}

	require.True(t, CompareForTrick(mid, low, Diamonds))
	require.True(t, CompareForTrick(high, mid, Diamonds))
	require.True(t, CompareForTrick(high, low, Diamonds))
}
