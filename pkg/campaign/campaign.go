// Package campaign loads the campaign list the tracker runs against.
package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/validity"
)

// DefaultFile is the campaign list read when CAMPAIGNS_FILE is unset
const DefaultFile = "campaigns.json"

// Campaign is one tracked campaign
type Campaign struct {
	// ID identifies the campaign in every table
	ID string `json:"id"`
	// Name is for display only
	Name string `json:"name"`
	// Tag is the campaign hashtag, normalized with a leading '#'
	Tag string `json:"tag"`
	// StartAt anchors the early amplifier window; zero disables it
	StartAt time.Time `json:"startAt"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// LoadCampaigns reads and validates a campaign list from path.
//
// The file should be in JSON format with the following structure:
//
//	{
//	    "campaigns": [
//	        {
//	            "id": "acme-launch",
//	            "name": "Acme launch week",
//	            "tag": "#acme",
//	            "startDate": "2024-03-01"
//	        }
//	    ]
//	}
//
// startDate accepts RFC3339 or YYYY-MM-DD (midnight UTC) and may be omitted.
func LoadCampaigns(path string) ([]Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading campaigns: %w", err)
	}
	return ParseCampaigns(data)
}

// ParseCampaigns is LoadCampaigns on an in-memory document
func ParseCampaigns(data []byte) ([]Campaign, error) {
	type rawCampaign struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Tag       string `json:"tag"`
		StartDate string `json:"startDate"`
	}

	type rawConfig struct {
		Campaigns []rawCampaign `json:"campaigns"`
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing campaigns: %w", err)
	}

	seen := make(map[string]bool, len(raw.Campaigns))
	campaigns := make([]Campaign, 0, len(raw.Campaigns))
	for i, rc := range raw.Campaigns {
		id := strings.TrimSpace(rc.ID)
		if id == "" {
			return nil, fmt.Errorf("campaign %d: id is required", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("campaign %s: duplicate id", id)
		}
		seen[id] = true

		tag := validity.NormalizeTag(rc.Tag)
		if tag == "" || tag == "#" {
			return nil, fmt.Errorf("campaign %s: tag is required", id)
		}

		c := Campaign{ID: id, Name: rc.Name, Tag: tag}
		if rc.StartDate != "" {
			start, err := parseDate(rc.StartDate)
			if err != nil {
				return nil, fmt.Errorf("campaign %s: parsing start date: %w", id, err)
			}
			c.StartAt = start
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, nil
}

func parseDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, strings.TrimSpace(raw))
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Find returns the campaign with id
func Find(campaigns []Campaign, id string) (Campaign, bool) {
	for _, c := range campaigns {
		if c.ID == id {
			return c, true
		}
	}
	return Campaign{}, false
}
