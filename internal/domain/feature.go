package domain

type Feature struct {
	Icon string
	Text string
}

// WelcomeFeatures lists the onboarding teasers. None of them is implemented
// beyond its row on the welcome screen.
func WelcomeFeatures() []Feature {
	return []Feature{
		{Icon: "◈", Text: "Connect Multiple Wallets"},
		{Icon: "↗", Text: "Track Performance"},
		{Icon: "◉", Text: "Custom Price Alerts"},
	}
}
