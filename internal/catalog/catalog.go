// Package catalog parses the Taipei open-data attraction dump
// (taipei-attractions.json) into model.Attraction values.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// DefaultTransport is stored when a record has no directions.
const DefaultTransport = "無資料"

type dump struct {
	Result struct {
		Results []record `json:"results"`
	} `json:"result"`
}

// record mirrors one entry of the dump.  Coordinates arrive as strings in
// the published file, so they are decoded leniently.
type record struct {
	ID          scalar  `json:"_id"`
	Name        string  `json:"name"`
	Category    string  `json:"CAT"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Direction   *string `json:"direction"`
	MRT         *string `json:"MRT"`
	Latitude    scalar  `json:"latitude"`
	Longitude   scalar  `json:"longitude"`
	File        string  `json:"file"`
}

// scalar accepts a JSON string or number and keeps its text.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = scalar(strings.TrimSpace(str))
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = scalar(b)
	return nil
}

// Load decodes a dump.  Records keep their _id so re-importing updates
// rows in place; records without one are numbered by position.
func Load(r io.Reader) ([]model.Attraction, error) {
	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode attractions: %w", err)
	}
	out := make([]model.Attraction, 0, len(d.Result.Results))
	for i, rec := range d.Result.Results {
		a, err := rec.attraction(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (rec record) attraction(index int) (model.Attraction, error) {
	id := uint64(index + 1)
	if rec.ID != "" {
		n, err := strconv.ParseUint(string(rec.ID), 10, 64)
		if err != nil || n == 0 {
			return model.Attraction{}, fmt.Errorf("record %d: bad _id %q", index, rec.ID)
		}
		id = n
	}
	lat, err := strconv.ParseFloat(string(rec.Latitude), 64)
	if err != nil {
		return model.Attraction{}, fmt.Errorf("record %d (%s): bad latitude %q", index, rec.Name, rec.Latitude)
	}
	lng, err := strconv.ParseFloat(string(rec.Longitude), 64)
	if err != nil {
		return model.Attraction{}, fmt.Errorf("record %d (%s): bad longitude %q", index, rec.Name, rec.Longitude)
	}
	transport := DefaultTransport
	if rec.Direction != nil {
		transport = *rec.Direction
	}
	var mrt *string
	if rec.MRT != nil && strings.TrimSpace(*rec.MRT) != "" {
		m := strings.TrimSpace(*rec.MRT)
		mrt = &m
	}
	return model.Attraction{
		ID:          id,
		Name:        rec.Name,
		Category:    rec.Category,
		Description: rec.Description,
		Address:     rec.Address,
		Transport:   transport,
		MRT:         mrt,
		Lat:         lat,
		Lng:         lng,
		Images:      ExtractImages(rec.File),
	}, nil
}

var urlStart = regexp.MustCompile(`https?://`)

// ExtractImages splits the concatenated "file" field into URLs and keeps
// the jpg, jpeg and png ones.  The field has no separators, so each URL
// runs until the next scheme; other media (mp3, flv) are dropped.
func ExtractImages(file string) []string {
	starts := urlStart.FindAllStringIndex(file, -1)
	out := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(file)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		u := strings.TrimSpace(file[loc[0]:end])
		switch strings.ToLower(u[strings.LastIndexByte(u, '.')+1:]) {
		case "jpg", "jpeg", "png":
			out = append(out, u)
		}
	}
	return out
}
