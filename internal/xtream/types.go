package xtream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString decodes a JSON field that providers serve inconsistently as a
// string, a number, or null. Everything lands as its string form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexBool decodes the common adult-flag encodings: true/false, 0/1, "0"/"1",
// null. Anything unrecognized is false.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(data)), `"`) {
	case "1", "true":
		*f = true
	default:
		*f = false
	}
	return nil
}

func (f FlexBool) Bool() bool { return bool(f) }

// category is one entry of a get_*_categories response.
type category struct {
	ID   FlexString `json:"category_id"`
	Name string     `json:"category_name"`
}

// stream is one entry of a get_live_streams / get_vod_streams / get_series
// response. Field presence varies per provider; absent fields decode to their
// zero value and defaults are applied when the catalog entry is built.
type stream struct {
	ID                 FlexString `json:"stream_id"`
	SeriesID           FlexString `json:"series_id"`
	Name               string     `json:"name"`
	Icon               string     `json:"stream_icon"`
	Cover              string     `json:"cover"`
	CategoryID         FlexString `json:"category_id"`
	StreamType         string     `json:"stream_type"`
	ContainerExtension string     `json:"container_extension"`
	IsAdult            FlexBool   `json:"is_adult"`
	EPGChannelID       string     `json:"epg_channel_id"`
}

// authResponse is the player_api login payload. The effective credentials in
// user_info may differ in case from the configured ones and win.
type authResponse struct {
	UserInfo struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"user_info"`
	ServerInfo struct {
		URL       string     `json:"url"`
		Port      FlexString `json:"port"`
		HTTPSPort FlexString `json:"https_port"`
	} `json:"server_info"`
}

// seriesInfoResponse is the get_series_info payload: season metadata plus
// episodes keyed by season number. The seasons array may be entirely empty
// even when episodes exist.
type seriesInfoResponse struct {
	Seasons  []seasonInfo             `json:"seasons"`
	Episodes map[string][]episodeInfo `json:"episodes"`
	Info     struct {
		Cover string `json:"cover"`
	} `json:"info"`
}

type seasonInfo struct {
	Name         string     `json:"name"`
	SeasonNumber FlexString `json:"season_number"`
	Cover        string     `json:"cover"`
}

func (s seasonInfo) displayName() string {
	if s.Name != "" {
		return s.Name
	}
	return "Season " + string(s.SeasonNumber)
}

type episodeInfo struct {
	ID                 FlexString `json:"id"`
	Title              string     `json:"title"`
	ContainerExtension string     `json:"container_extension"`
	Info               struct {
		MovieImage string `json:"movie_image"`
	} `json:"info"`
}
