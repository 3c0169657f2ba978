package game

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
)

// Friend is one entry in the account's friend list.
type Friend struct {
	RestaurantID string
	Name         string
	Level        int
}

// Friends wraps friend lookup and friend-to-friend ingredient trades.
type Friends struct {
	client *Client
	log    zerolog.Logger
}

// NewFriends creates a Friends service over the client.
func NewFriends(client *Client, log zerolog.Logger) *Friends {
	return &Friends{client: client, log: log}
}

// List returns every friend, following the page parameter until an empty
// page.
func (f *Friends) List(ctx context.Context) ([]Friend, error) {
	var friends []Friend

	for page := 1; ; page++ {
		form := url.Values{}
		form.Set("page", strconv.Itoa(page))

		body, err := f.client.Post(ctx, "m=Friend&a=get_list", form)
		if err != nil {
			return nil, fmt.Errorf("listing friends page %d: %w", page, err)
		}

		rows := body.Get("data").Array()
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			friends = append(friends, Friend{
				RestaurantID: row.Get("res_id").String(),
				Name:         row.Get("name").String(),
				Level:        int(row.Get("level").Int()),
			})
		}
	}

	f.log.Debug().Int("count", len(friends)).Msg("friend list fetched")
	return friends, nil
}

// Exchange trades one of my giveCode for one of the friend's wantCode. The
// game only supports 1:1 trades. A business rejection is returned as
// ok=false with the cleaned message.
func (f *Friends) Exchange(ctx context.Context, friendID, wantCode, giveCode string) (bool, string, error) {
	form := url.Values{}
	form.Set("res_id", friendID)
	form.Set("friend_code", wantCode)
	form.Set("my_code", giveCode)

	body, err := f.client.Post(ctx, "m=CupboardGrid&a=friend_exchange_food", form)
	if err != nil {
		if IsBusiness(err) {
			return false, err.Error(), nil
		}
		return false, "", err
	}

	msg := CleanMessage(body.Get("msg").String())
	f.log.Debug().Str("friend", friendID).Str("want", wantCode).
		Str("give", giveCode).Msg("exchange accepted")
	return true, msg, nil
}

// FindPartner picks the trade partner: the first preferred restaurant ID
// present in the friend list, or the first friend when none of the preferred
// ones match.
func (f *Friends) FindPartner(ctx context.Context, preferred []string) (Friend, error) {
	friends, err := f.List(ctx)
	if err != nil {
		return Friend{}, err
	}
	if len(friends) == 0 {
		return Friend{}, fmt.Errorf("friend list is empty")
	}

	byID := make(map[string]Friend, len(friends))
	for _, fr := range friends {
		byID[fr.RestaurantID] = fr
	}
	for _, id := range preferred {
		if fr, ok := byID[id]; ok {
			return fr, nil
		}
	}
	return friends[0], nil
}
