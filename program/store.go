package main

type Flow int

const (
	FlowGenerate Flow = iota
	FlowUpload
)

func (f Flow) String() string {
	if f == FlowUpload {
		return "upload"
	}
	return "generate"
}

type ImageAnalysis struct {
	ImageName  string        `json:"image_name"`
	CipherName string        `json:"cipher_name"`
	Entropy    *float64      `json:"entropy"`
	NPCR       *float64      `json:"npcr"`
	HistPlain  []int         `json:"hist_plain"`
	HistCipher []int         `json:"hist_cipher"`
	RGBPlain   *RGBHistogram `json:"hist_rgb_plain"`
	RGBCipher  *RGBHistogram `json:"hist_rgb_cipher"`
}

// Result is one complete analysis as shown on screen.
type Result struct {
	Flow    Flow
	Label   string
	SBox    SBox
	Metrics MetricSet
	Image   *ImageAnalysis
	// Raw is the backend response body, kept for the raw JSON view.
	Raw []byte
}

func (r Result) clone() Result {
	out := r
	out.SBox = r.SBox.Clone()
	out.Metrics = r.Metrics.Clone()
	if r.Image != nil {
		img := *r.Image
		img.HistPlain = cloneInts(r.Image.HistPlain)
		img.HistCipher = cloneInts(r.Image.HistCipher)
		img.RGBPlain = r.Image.RGBPlain.clone()
		img.RGBCipher = r.Image.RGBCipher.clone()
		out.Image = &img
	}
	if r.Raw != nil {
		out.Raw = append([]byte(nil), r.Raw...)
	}
	return out
}

// resultStore holds the single displayed result. It is only touched from
// the UI update loop, so it carries no lock.
type resultStore struct {
	current    *Result
	generation uint64
}

// Replace installs r as the displayed result and returns the new
// generation. Everything derived from the previous result is stale.
func (s *resultStore) Replace(r Result) uint64 {
	c := r.clone()
	s.current = &c
	s.generation++
	return s.generation
}

func (s *resultStore) Current() (Result, bool) {
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

func (s *resultStore) Generation() uint64 { return s.generation }

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
