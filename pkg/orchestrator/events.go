package orchestrator

import (
	"github.com/cardtable/spadesroom/pkg/deck"
	"github.com/cardtable/spadesroom/pkg/game"
	"github.com/cardtable/spadesroom/pkg/score"
)

// Wire event names, client -> server.
const (
	eventCreateRoom  = "create-room"
	eventJoinRoom    = "join-room"
	eventToggleReady = "toggle-ready"
	eventSetGameMode = "set-game-mode"
	eventAssignTeam  = "assign-team"
	eventUpdateTeams = "update-teams"
	eventStartGame   = "start-game"
	eventNilDecision = "nil-decision"
	eventPlaceBid    = "place-bid"
	eventPlayCard    = "play-card"
	eventNextRound   = "next-round"
	eventRestartGame = "restart-game"
	eventEndGame     = "end-game"
	eventLeaveGame   = "leave-game"
)

// Wire event names, server -> client.
const (
	eventRoomUpdate  = "room-update"
	eventGameState   = "game-state"
	eventTrickResult = "trick-result"
	eventRoundEnd    = "round-end"
	eventInvalidPlay = "invalid-play"
	eventGameReset   = "game-reset"
	eventGameEnded   = "game-ended"
)

// ---------- client -> server payloads ----------

type createRoomPayload struct {
	PlayerName string `json:"playerName"`
	GameMode   string `json:"gameMode"`
}

type joinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type roomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type setGameModePayload struct {
	RoomCode string `json:"roomCode"`
	GameMode string `json:"gameMode"`
}

type assignTeamPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	TeamName   string `json:"teamName"`
}

type updateTeamsPayload struct {
	RoomCode string `json:"roomCode"`
	NumTeams int    `json:"numTeams"`
}

type nilDecisionPayload struct {
	RoomCode string `json:"roomCode"`
	GoNil    bool   `json:"goNil"`
}

type placeBidPayload struct {
	RoomCode string `json:"roomCode"`
	Bid      int    `json:"bid"`
}

type playCardPayload struct {
	RoomCode string `json:"roomCode"`
	CardID   int    `json:"cardId"`
}

// ---------- server -> client payloads ----------

type ackPayload struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

type roomPlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

type roomUpdatePayload struct {
	RoomCode string              `json:"roomCode"`
	HostID   string              `json:"hostId"`
	GameMode string              `json:"gameMode"`
	Started  bool                `json:"started"`
	Players  []roomPlayerView    `json:"players"`
	Teams    map[string][]string `json:"teams,omitempty"`
}

type gameStatePayload struct {
	CurrentRound      int    `json:"currentRound"`
	Phase             string `json:"phase"`
	PlayerOrder       []string `json:"playerOrder"`
	DealerIndex       int      `json:"dealerIndex"`
	BiddingStartIndex int      `json:"biddingStartIndex"`
	FirstLeadIndex    int      `json:"firstLeadIndex"`
	CurrentPlayerIdx  int      `json:"currentPlayerIndex"`
	CurrentPlayer     string   `json:"currentPlayer"`

	Hand            []deck.Card    `json:"hand"`
	OtherHandCounts map[string]int `json:"otherHandCounts"`

	Bids      map[string]int            `json:"bids"`
	NilBids   map[string]string         `json:"nilBids"`
	TricksWon map[string]int            `json:"tricksWon"`

	CurrentTrick    []game.TrickCard `json:"currentTrick"`
	TrickNumber     int              `json:"trickNumber"`
	LedSuit         deck.Suit        `json:"ledSuit"`
	SpadesBroken    bool             `json:"spadesBroken"`
	LastTrickWinner string           `json:"lastTrickWinner"`

	Scores       map[string]int `json:"scores"`
	OvertrickBag map[string]int `json:"overtrickBag"`

	TeamScores       map[string]int `json:"teamScores,omitempty"`
	TeamOvertrickBag map[string]int `json:"teamOvertrickBag,omitempty"`

	GameOver bool          `json:"gameOver"`
	Winner   *score.Winner `json:"winner,omitempty"`
}

type trickResultPayload struct {
	Winner      string           `json:"winner"`
	WinningCard deck.Card        `json:"winningCard"`
	Trick       []game.TrickCard `json:"trick"`
}

type roundEndPayload struct {
	Round        int                         `json:"round"`
	RoundScores  map[string]int              `json:"roundScores"`
	Scores       map[string]int              `json:"scores"`
	Penalties    map[string]bool             `json:"penalties"`
	RoundHistory map[string][]score.RoundRow `json:"roundHistory"`

	TeamRoundScores  map[string]int              `json:"teamRoundScores,omitempty"`
	TeamScores       map[string]int              `json:"teamScores,omitempty"`
	TeamPenalties    map[string]bool             `json:"teamPenalties,omitempty"`
	TeamRoundHistory map[string][]score.RoundRow `json:"teamRoundHistory,omitempty"`
}

type invalidPlayPayload struct {
	Message string `json:"message"`
}

type gameEndedPayload struct {
	Winner     *score.Winner  `json:"winner,omitempty"`
	Scores     map[string]int `json:"scores"`
	TeamScores map[string]int `json:"teamScores,omitempty"`
}
