package tweetstream

// Sample returns a session on the unfiltered sample stream.
func (c *Client) Sample() *Session {
	return c.NewSession(Sample())
}

// Follow returns a session delivering statuses from the given user ids.
func (c *Client) Follow(ids ...int64) (*Session, error) {
	v, err := FollowUsers(ids...)
	if err != nil {
		return nil, err
	}
	return c.NewSession(v), nil
}

// Track returns a session delivering statuses that match any of terms.
func (c *Client) Track(terms ...string) (*Session, error) {
	v, err := TrackKeywords(terms...)
	if err != nil {
		return nil, err
	}
	return c.NewSession(v), nil
}
