package detector

// Redirects flags links on URL-shortening services.
type Redirects struct{}

// NewRedirects creates a shortener detector.
func NewRedirects() *Redirects {
	return &Redirects{}
}

func (d *Redirects) Name() string        { return "redirects" }
func (d *Redirects) Description() string { return "URL shorteners hiding the destination" }

func (d *Redirects) Detect(raw string) int {
	u, err := parse(raw)
	if err != nil {
		return 0
	}

	host := hostname(u)
	for _, s := range shorteners {
		if matchesDomain(host, s) {
			return 60
		}
	}
	return 0
}
