package score

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundOutcomeMadeBid(t *testing.T) {
	s, ot := RoundOutcome(3, Undecided, 3)
	require.Equal(t, 30, s)
	require.Equal(t, 0, ot)

	s, ot = RoundOutcome(3, Undecided, 5)
	require.Equal(t, 32, s)
	require.Equal(t, 2, ot)
}

func TestRoundOutcomeFailedBid(t *testing.T) {
	s, ot := RoundOutcome(4, Undecided, 2)
	require.Equal(t, -40, s)
	require.Equal(t, 0, ot)
}

func TestRoundOutcomeBidZero(t *testing.T) {
	s, ot := RoundOutcome(0, Undecided, 3)
	require.Equal(t, 3, s)
	require.Equal(t, 3, ot)
}

func TestRoundOutcomeNil(t *testing.T) {
	s, ot := RoundOutcome(0, WentNil, 0)
	require.Equal(t, 100, s)
	require.Equal(t, 0, ot)

	s, ot = RoundOutcome(0, WentNil, 1)
	require.Equal(t, -100, s)
	require.Equal(t, 0, ot)
}

func TestDenominatorPenaltyApplies(t *testing.T) {
	newTotal, applied := ApplyDenominatorPenalty(8, 7)
	require.True(t, applied)
	require.Equal(t, -40, newTotal)
}

func TestDenominatorPenaltyDoesNotApplyWhenIntervalMisses(t *testing.T) {
	newTotal, applied := ApplyDenominatorPenalty(10, 3)
	require.False(t, applied)
	require.Equal(t, 13, newTotal)
}

func TestDenominatorPenaltyOnNegativeSwing(t *testing.T) {
	// previousTotal=20, roundScore=-40 -> raw=-20; on a downward swing the
	// checked interval is [-20, 20), i.e. -20..19, with the new total
	// included and the previous one excluded: -15, -5, 5 and 15 all qualify.
	newTotal, applied := ApplyDenominatorPenalty(20, -40)
	require.True(t, applied)
	require.Equal(t, -75, newTotal)
}

func TestTotalAfterReproducesFromHistory(t *testing.T) {
	rows := []RoundRow{
		{RoundScore: 30, PenaltyApplied: false},
		{RoundScore: 20, PenaltyApplied: true},
		{RoundScore: -10, PenaltyApplied: false},
	}
	sum := 0
	for _, r := range rows {
		sum += r.RoundScore
		if r.PenaltyApplied {
			sum -= 55
		}
	}
	require.Equal(t, 30+20-55-10, sum)
}

func TestTeamRoundOutcomeCombinesNonNilAndNil(t *testing.T) {
	in := TeamInputs{
		NonNilBids:      []int{2},
		NonNilTricksWon: []int{2},
		NilOutcomes: []NilMemberOutcome{
			{PlayerName: "B", TricksWon: 0},
		},
	}
	s, ot := TeamRoundOutcome(in)
	require.Equal(t, 20+100, s)
	require.Equal(t, 0, ot)
}

func TestSelectWinnerPicksMax(t *testing.T) {
	totals := map[string]int{"A": 120, "B": 340, "C": 200}
	w, err := SelectWinner([]string{"A", "B", "C"}, totals, IndividualWinner)
	require.NoError(t, err)
	require.Equal(t, "B", w.Name)
	require.Equal(t, 340, w.Score)
}

func TestSelectWinnerTieBreaksToFirstInOrder(t *testing.T) {
	totals := map[string]int{"A": 200, "B": 200}
	w, err := SelectWinner([]string{"A", "B"}, totals, IndividualWinner)
	require.NoError(t, err)
	require.Equal(t, "A", w.Name)
}
