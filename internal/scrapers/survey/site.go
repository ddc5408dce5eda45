package survey

// DefaultSentinel is the termination marker value observed on the final
// question page. Its meaning is undocumented, it is treated as opaque.
const DefaultSentinel = "311"

// Price is the purchase amount posted alongside the receipt code, split into
// the major and minor currency units the form asks for.
type Price struct {
	Pound string
	Pence string
}

// Site is everything version specific about a survey.
type Site struct {
	Version       string
	BaseUrl       string
	EntryStrategy Strategy
	Sentinel      string
	Price         Price
	Policy        Policy
}

// Catalog looks up the site for a survey version. Unknown or unimplemented
// versions are reported as ErrUnsupportedVersion.
type Catalog interface {
	Lookup(version string) (Site, error)
}
