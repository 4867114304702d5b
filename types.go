package tweetstream

import "time"

// MessageKind identifies what a stream object carries.
type MessageKind int

const (
	MessageUnknown MessageKind = iota
	MessageStatus
	MessageDelete
	MessageLimit
	MessageScrubGeo
)

func (k MessageKind) String() string {
	switch k {
	case MessageStatus:
		return "status"
	case MessageDelete:
		return "delete"
	case MessageLimit:
		return "limit"
	case MessageScrubGeo:
		return "scrub_geo"
	}
	return "unknown"
}

// TwitterUser represents the author profile embedded in a status.
type TwitterUser struct {
	ID          string
	Handle      string
	DisplayName string
	Bio         string
	Location    string
	Followers   int
	Following   int
	TweetCount  int
	ListedCount int
	CreatedAt   time.Time
	IsVerified  bool
	HasAvatar   bool
	HasBio      bool
}

// Tweet represents a single status delivered by the stream.
type Tweet struct {
	ID                string
	AuthorID          string
	Author            *TwitterUser
	Text              string
	Source            string
	CreatedAt         time.Time
	InReplyToStatusID string
	Likes             int
	Retweets          int
	Quotes            int
	Truncated         bool
	TokenMentions     []string // extracted $TICKER patterns, e.g. ["BTC", "ETH"]
}

// DeleteNotice asks consumers to remove a previously delivered status.
type DeleteNotice struct {
	StatusID string
	UserID   string
}

// LimitNotice reports how many matching statuses the stream withheld.
type LimitNotice struct {
	Undelivered int64
}
