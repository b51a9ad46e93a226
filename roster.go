package main

// RosterEntry identifies one participant flag
type RosterEntry struct {
	Code string `json:"code"` // ISO 3166-1 alpha-2, keys the viewer's flag image
	Name string `json:"name"`
}

// Roster is the fixed participant population. Every round shuffles this list;
// nobody joins or leaves mid-session.
var Roster = []RosterEntry{
	{Code: "ar", Name: "Argentina"},
	{Code: "au", Name: "Australia"},
	{Code: "at", Name: "Austria"},
	{Code: "be", Name: "Belgium"},
	{Code: "br", Name: "Brazil"},
	{Code: "bg", Name: "Bulgaria"},
	{Code: "ca", Name: "Canada"},
	{Code: "cl", Name: "Chile"},
	{Code: "cn", Name: "China"},
	{Code: "co", Name: "Colombia"},
	{Code: "hr", Name: "Croatia"},
	{Code: "cz", Name: "Czechia"},
	{Code: "dk", Name: "Denmark"},
	{Code: "eg", Name: "Egypt"},
	{Code: "fi", Name: "Finland"},
	{Code: "fr", Name: "France"},
	{Code: "de", Name: "Germany"},
	{Code: "gr", Name: "Greece"},
	{Code: "hu", Name: "Hungary"},
	{Code: "is", Name: "Iceland"},
	{Code: "in", Name: "India"},
	{Code: "id", Name: "Indonesia"},
	{Code: "ie", Name: "Ireland"},
	{Code: "il", Name: "Israel"},
	{Code: "it", Name: "Italy"},
	{Code: "jp", Name: "Japan"},
	{Code: "ke", Name: "Kenya"},
	{Code: "kr", Name: "South Korea"},
	{Code: "mx", Name: "Mexico"},
	{Code: "ma", Name: "Morocco"},
	{Code: "nl", Name: "Netherlands"},
	{Code: "nz", Name: "New Zealand"},
	{Code: "ng", Name: "Nigeria"},
	{Code: "no", Name: "Norway"},
	{Code: "pe", Name: "Peru"},
	{Code: "ph", Name: "Philippines"},
	{Code: "pl", Name: "Poland"},
	{Code: "pt", Name: "Portugal"},
	{Code: "ro", Name: "Romania"},
	{Code: "sa", Name: "Saudi Arabia"},
	{Code: "rs", Name: "Serbia"},
	{Code: "sg", Name: "Singapore"},
	{Code: "za", Name: "South Africa"},
	{Code: "es", Name: "Spain"},
	{Code: "se", Name: "Sweden"},
	{Code: "ch", Name: "Switzerland"},
	{Code: "th", Name: "Thailand"},
	{Code: "tr", Name: "Turkey"},
	{Code: "gb", Name: "United Kingdom"},
}

// RosterMap provides O(1) lookup by code
var RosterMap map[string]RosterEntry

func init() {
	RosterMap = make(map[string]RosterEntry, len(Roster))
	for _, e := range Roster {
		RosterMap[e.Code] = e
	}
}
