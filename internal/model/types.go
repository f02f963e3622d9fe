package model

// -----------------------------------------------------------------------------
// Persistent Types
// -----------------------------------------------------------------------------

// User is a registered player.
type User struct {
	UUID     string `json:"uuid" bson:"_id"`
	ConnID   string `json:"connId,omitempty" bson:"conn_id"` // Last bound connection id
	Username string `json:"username" bson:"username"`
	Avatar   string `json:"avatar,omitempty" bson:"avatar"`
	Hash     string `json:"-" bson:"hash"` // bcrypt password hash
	Points   int    `json:"points" bson:"points"`
}

// Task is a challenge that connections are paired on.
type Task struct {
	UUID        string   `json:"uuid" bson:"_id"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description" bson:"description"`
	Results     []Result `json:"results" bson:"results"`
}

// Result is one finished match on a task: [winner UUID, loser UUID].
type Result [2]string

// Winner returns the winning user's UUID.
func (r Result) Winner() string { return r[0] }

// Loser returns the losing user's UUID.
func (r Result) Loser() string { return r[1] }

// Standing is one leaderboard row.
type Standing struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Points   int    `json:"points"`
}

// Standing returns the public leaderboard view of u.
func (u User) Standing() Standing {
	return Standing{UUID: u.UUID, Username: u.Username, Avatar: u.Avatar, Points: u.Points}
}

// -----------------------------------------------------------------------------
// Transient Types
// -----------------------------------------------------------------------------

// Outcome is a finished match between two paired connections.
type Outcome struct {
	Task   string // Task id the connections were paired on
	Winner string // Connection id of the winner
	Loser  string // Connection id of the loser
}
