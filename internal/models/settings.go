package models

// Keys of the settings table
const (
	SettingPoolName         = "pool_name"
	SettingSquarePrice      = "square_price_cents"
	SettingPayoutQ1         = "payout_q1_cents"
	SettingPayoutQ2         = "payout_q2_cents"
	SettingPayoutQ3         = "payout_q3_cents"
	SettingPayoutQ4         = "payout_q4_cents"
	SettingPayoutOT         = "payout_ot_cents"
	SettingAFCTeam          = "afc_team"
	SettingNFCTeam          = "nfc_team"
	SettingScoreboardURL    = "scoreboard_url"
	SettingScoreboardEvent  = "scoreboard_event_id"
	SettingScoreSync        = "score_sync_enabled"
	SettingReservationMins  = "reservation_minutes"
	SettingMaxSquares       = "max_squares_per_participant"
	SettingBaseURL          = "base_url"
	SettingNumbersLaunched  = "numbers_launched"
	DefaultScoreboardURL    = "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"
	DefaultPoolName         = "Super Bowl Squares"
	DefaultReservationMins  = 30
	DefaultSquarePriceCents = 1000
)

// DefaultSettings are inserted when the database is created. base_url is left
// to the app, which fills it with the detected LAN address.
var DefaultSettings = map[string]string{
	SettingPoolName:        DefaultPoolName,
	SettingSquarePrice:     "1000",
	SettingPayoutQ1:        "25000",
	SettingPayoutQ2:        "25000",
	SettingPayoutQ3:        "25000",
	SettingPayoutQ4:        "25000",
	SettingPayoutOT:        "0",
	SettingAFCTeam:         "",
	SettingNFCTeam:         "",
	SettingScoreboardURL:   DefaultScoreboardURL,
	SettingScoreboardEvent: "",
	SettingScoreSync:       "false",
	SettingReservationMins: "30",
	SettingMaxSquares:      "0",
	SettingNumbersLaunched: "false",
}

// PoolSettings is the typed view of the admin-editable settings
type PoolSettings struct {
	PoolName           string      `json:"pool_name" validate:"required,max=100"`
	SquarePrice        Money       `json:"square_price" validate:"gte=0"`
	Payouts            PayoutTable `json:"payouts"`
	AFCTeam            string      `json:"afc_team" validate:"omitempty,alphanum,max=4"`
	NFCTeam            string      `json:"nfc_team" validate:"omitempty,alphanum,max=4"`
	ScoreboardURL      string      `json:"scoreboard_url" validate:"omitempty,url"`
	ScoreboardEventID  string      `json:"scoreboard_event_id"`
	ScoreSyncEnabled   bool        `json:"score_sync_enabled"`
	ReservationMinutes int         `json:"reservation_minutes" validate:"gte=0,lte=1440"`
	MaxSquares         int         `json:"max_squares_per_participant" validate:"gte=0,lte=100"`
	BaseURL            string      `json:"base_url" validate:"omitempty,url"`
	NumbersLaunched    bool        `json:"numbers_launched"`
}
