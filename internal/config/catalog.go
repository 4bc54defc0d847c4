package config

// CardSeed describes one entry of the default card catalog.
type CardSeed struct {
	DisplayName string
	Last4       string
	Channels    []string
	Currency    string
}

// DefaultCardCatalog returns the fixed catalog of starter cards. Seeding
// is keyed by Last4 and never overwrites existing cards, so the catalog
// is safe to apply on every card listing. Returned as a fresh slice so
// callers cannot mutate shared state.
func DefaultCardCatalog() []CardSeed {
	return []CardSeed{
		{DisplayName: "Meta Ads Card", Last4: "4821", Channels: []string{"facebook"}, Currency: "USD"},
		{DisplayName: "Google Ads Card", Last4: "7305", Channels: []string{"google"}, Currency: "USD"},
		{DisplayName: "TikTok Ads Card", Last4: "1194", Channels: []string{"tiktok"}, Currency: "USD"},
		{DisplayName: "General Spend Card", Last4: "0068", Channels: nil, Currency: "USD"},
	}
}
