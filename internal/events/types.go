package events

// ScoreUpdateEvent is published after every applied score transition,
// whether a single point or an absolute correction.
type ScoreUpdateEvent struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Win       int    `json:"win"`
	Lose      int    `json:"lose"`
	Goal      int    `json:"goal"`

	// Correction marks an absolute "set the score" update rather than
	// an incremental point.
	Correction bool `json:"correction,omitempty"`
}

// OddsUpdateEvent carries the freshly solved win polynomial for a
// position. Exact and Display are the two render forms; Mid is the
// approximate probability at p = 1/2 (the constant coefficient).
type OddsUpdateEvent struct {
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
	Win       int    `json:"win"`
	Lose      int    `json:"lose"`
	Goal      int    `json:"goal"`

	Exact      string  `json:"exact"`
	Display    string  `json:"display"`
	Mid        float64 `json:"mid"`
	Correction bool    `json:"correction,omitempty"`

	// Coefficients in degree order, exact rational strings and their
	// float conversions. Lossless enough for the history store to
	// persist without re-solving.
	Coeffs      [4]string  `json:"coeffs"`
	FloatCoeffs [4]float64 `json:"float_coeffs"`
}

// RaceFinishEvent is published once, when either side reaches the goal.
type RaceFinishEvent struct {
	SessionID string `json:"session_id"`
	Win       int    `json:"win"`
	Lose      int    `json:"lose"`
	Goal      int    `json:"goal"`

	// Won is true when the tracked side took the race.
	Won bool `json:"won"`
}
