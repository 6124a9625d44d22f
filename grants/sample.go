package grants

import "time"

// SampleGrants returns the built-in catalogue the store is seeded with when
// no database is configured.
func SampleGrants() []*Grant {
	now := time.Now()
	return []*Grant{
		{
			ID:          "grant_001",
			Title:       "Victorian Creative Industries Grant",
			Description: "Supporting creative projects that contribute to Victoria's cultural landscape",
			Amount:      50000,
			Deadline:    now.Add(30 * 24 * time.Hour),
			Category:    CategoryArtsCulture,
			Eligibility: []string{
				"Non-profit organizations",
				"Creative businesses",
				"Individual artists",
			},
			Requirements: []string{
				"Project proposal",
				"Budget breakdown",
				"Timeline",
				"Impact assessment",
			},
			ContactInfo: map[string]string{
				"email": "grants@creative.vic.gov.au",
				"phone": "03 8683 3100",
			},
			Website:      "https://creative.vic.gov.au/grants",
			Source:       "Creative Victoria",
			SuccessScore: 0.85,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:          "grant_002",
			Title:       "Community Impact Fund",
			Description: "Supporting community projects that create positive social impact",
			Amount:      25000,
			Deadline:    now.Add(45 * 24 * time.Hour),
			Category:    CategoryCommunity,
			Eligibility: []string{
				"Community organizations",
				"Social enterprises",
				"Non-profits",
			},
			Requirements: []string{
				"Community consultation",
				"Impact measurement plan",
				"Partnership details",
			},
			ContactInfo: map[string]string{
				"email": "impact@community.gov.au",
				"phone": "03 9208 3333",
			},
			Website:      "https://community.gov.au/impact-fund",
			Source:       "Department of Communities",
			SuccessScore: 0.92,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:          "grant_003",
			Title:       "Youth Innovation Grant",
			Description: "Supporting innovative projects led by young people",
			Amount:      15000,
			Deadline:    now.Add(60 * 24 * time.Hour),
			Category:    CategoryYouth,
			Eligibility: []string{
				"Youth-led organizations",
				"Young entrepreneurs",
				"Youth groups",
			},
			Requirements: []string{
				"Youth leadership",
				"Innovation component",
				"Community benefit",
			},
			ContactInfo: map[string]string{
				"email": "youth@innovation.gov.au",
				"phone": "03 9208 4444",
			},
			Website:      "https://youth.gov.au/innovation-grant",
			Source:       "Youth Affairs Victoria",
			SuccessScore: 0.78,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// SeedSamples loads the sample catalogue into a store.
func SeedSamples(store Store) error {
	for _, g := range SampleGrants() {
		if err := store.AddGrant(g); err != nil {
			return err
		}
	}
	return nil
}
