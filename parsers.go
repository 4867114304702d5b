package tweetstream

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// createdAtLayout is the timestamp format used in v1 stream payloads.
const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

var tokenMentionRe = regexp.MustCompile(`\$([A-Z]{2,10})`)

// Classify reports what kind of message raw is. It never fails: anything that
// is not a recognised JSON object is MessageUnknown.
func Classify(raw json.RawMessage) MessageKind {
	var probe map[string]json.RawMessage
	if json.Unmarshal(raw, &probe) != nil {
		return MessageUnknown
	}
	switch {
	case probe["delete"] != nil:
		return MessageDelete
	case probe["limit"] != nil:
		return MessageLimit
	case probe["scrub_geo"] != nil:
		return MessageScrubGeo
	case probe["text"] != nil && probe["user"] != nil:
		return MessageStatus
	}
	return MessageUnknown
}

type userPayload struct {
	ID              json.Number `json:"id"`
	IDStr           string      `json:"id_str"`
	Name            string      `json:"name"`
	ScreenName      string      `json:"screen_name"`
	Description     string      `json:"description"`
	Location        string      `json:"location"`
	FollowersCount  int         `json:"followers_count"`
	FriendsCount    int         `json:"friends_count"`
	StatusesCount   int         `json:"statuses_count"`
	ListedCount     int         `json:"listed_count"`
	CreatedAt       string      `json:"created_at"`
	Verified        bool        `json:"verified"`
	ProfileImageURL string      `json:"profile_image_url"`
}

type statusPayload struct {
	ID                json.Number  `json:"id"`
	IDStr             string       `json:"id_str"`
	Text              string       `json:"text"`
	Source            string       `json:"source"`
	CreatedAt         string       `json:"created_at"`
	InReplyToStatusID *json.Number `json:"in_reply_to_status_id"`
	FavoriteCount     int          `json:"favorite_count"`
	RetweetCount      int          `json:"retweet_count"`
	QuoteCount        int          `json:"quote_count"`
	Truncated         bool         `json:"truncated"`
	User              *userPayload `json:"user"`
}

// ParseStatus decodes a status message into a Tweet.
func ParseStatus(raw json.RawMessage) (*Tweet, error) {
	var p statusPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	id := firstNonEmpty(p.IDStr, p.ID.String())
	if id == "" {
		return nil, fmt.Errorf("status without id: %s", truncateBytes(raw, 200))
	}

	t := &Tweet{
		ID:            id,
		Text:          p.Text,
		Source:        p.Source,
		CreatedAt:     parseCreatedAt(p.CreatedAt),
		Likes:         p.FavoriteCount,
		Retweets:      p.RetweetCount,
		Quotes:        p.QuoteCount,
		Truncated:     p.Truncated,
		TokenMentions: extractTokenMentions(p.Text),
	}
	if p.InReplyToStatusID != nil {
		t.InReplyToStatusID = p.InReplyToStatusID.String()
	}
	if p.User != nil {
		t.Author = parseUser(*p.User)
		t.AuthorID = t.Author.ID
	}
	return t, nil
}

func parseUser(u userPayload) *TwitterUser {
	bio := strings.TrimSpace(u.Description)
	return &TwitterUser{
		ID:          firstNonEmpty(u.IDStr, u.ID.String()),
		Handle:      u.ScreenName,
		DisplayName: u.Name,
		Bio:         bio,
		Location:    u.Location,
		Followers:   u.FollowersCount,
		Following:   u.FriendsCount,
		TweetCount:  u.StatusesCount,
		ListedCount: u.ListedCount,
		CreatedAt:   parseCreatedAt(u.CreatedAt),
		IsVerified:  u.Verified,
		HasAvatar:   u.ProfileImageURL != "" && !strings.Contains(u.ProfileImageURL, "default_profile"),
		HasBio:      bio != "",
	}
}

// ParseDelete decodes a delete notice.
func ParseDelete(raw json.RawMessage) (*DeleteNotice, error) {
	var p struct {
		Delete struct {
			Status struct {
				ID        json.Number `json:"id"`
				IDStr     string      `json:"id_str"`
				UserID    json.Number `json:"user_id"`
				UserIDStr string      `json:"user_id_str"`
			} `json:"status"`
		} `json:"delete"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal delete: %w", err)
	}
	st := p.Delete.Status
	d := &DeleteNotice{
		StatusID: firstNonEmpty(st.IDStr, st.ID.String()),
		UserID:   firstNonEmpty(st.UserIDStr, st.UserID.String()),
	}
	if d.StatusID == "" {
		return nil, fmt.Errorf("delete notice without status id: %s", truncateBytes(raw, 200))
	}
	return d, nil
}

// ParseLimit decodes a limit notice.
func ParseLimit(raw json.RawMessage) (*LimitNotice, error) {
	var p struct {
		Limit *struct {
			Track int64 `json:"track"`
		} `json:"limit"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal limit: %w", err)
	}
	if p.Limit == nil {
		return nil, fmt.Errorf("not a limit notice: %s", truncateBytes(raw, 200))
	}
	return &LimitNotice{Undelivered: p.Limit.Track}, nil
}

func parseCreatedAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(createdAtLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func extractTokenMentions(text string) []string {
	matches := tokenMentionRe.FindAllStringSubmatch(strings.ToUpper(text), -1)
	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if len(m) >= 2 && !seen[m[1]] {
			seen[m[1]] = true
			result = append(result, m[1])
		}
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
