package synthetics

import (
	"github.com/netsonde/synthctl/pkg/errors"
)

// MinHTTPTimeout is the lowest timeout (in milliseconds) the API accepts
// for page_load and url tests.
const MinHTTPTimeout = 5000

func validateHTTPTimeout(testType TestType, millis int) error {
	if millis < MinHTTPTimeout {
		return errors.NewInvalidTestParameterError(string(testType), "timeout",
			"test timeout must be >= %dms (got %d)", MinHTTPTimeout, millis)
	}
	return nil
}

// PageLoadTestSettings configure a browser page-load timing probe.
type PageLoadTestSettings struct {
	PingTraceSettings
	PageLoad map[string]any
}

func NewPageLoadTestSettings() *PageLoadTestSettings {
	return &PageLoadTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		PageLoad:          map[string]any{},
	}
}

func (s *PageLoadTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "pageLoad", Get: func() any { return s.PageLoad }, Set: setMap(&s.PageLoad)})
}

func (s *PageLoadTestSettings) TaskName() string { return "page-load" }

func (s *PageLoadTestSettings) TargetPayload() map[string]any { return s.PageLoad }

// PageLoadTestOptions hold the optional parameters of CreatePageLoadTest.
// Method and Body are accepted for configuration compatibility but the
// page_load payload does not carry them.
type PageLoadTestOptions struct {
	Timeout         int // ms, default and minimum 5000
	Method          string
	Headers         map[string]string
	CSSSelectors    map[string]string
	Body            string
	IgnoreTLSErrors bool
	Ping            bool
	Trace           bool
}

// PageLoadTest measures full page load timing in a headless browser.
type PageLoadTest struct {
	SynTest
}

// CreatePageLoadTest returns a page-load timing test for target. The timeout
// must be at least MinHTTPTimeout; a zero value selects the minimum.
func CreatePageLoadTest(name, target string, agentIDs []string, opts PageLoadTestOptions) (*PageLoadTest, error) {
	if opts.Timeout == 0 {
		opts.Timeout = MinHTTPTimeout
	}
	if err := validateHTTPTimeout(TestTypePageLoad, opts.Timeout); err != nil {
		return nil, err
	}
	tasks := []string{"page-load"}
	if opts.Ping {
		tasks = append(tasks, "ping")
	}
	if opts.Trace {
		tasks = append(tasks, "traceroute")
	}
	headers := opts.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	selectors := opts.CSSSelectors
	if selectors == nil {
		selectors = map[string]string{}
	}
	s := NewPageLoadTestSettings()
	s.AgentIDs = agentIDs
	s.Tasks = tasks
	s.PageLoad["target"] = target
	s.PageLoad["timeout"] = opts.Timeout
	s.PageLoad["headers"] = headers
	s.PageLoad["css_selectors"] = selectors
	s.PageLoad["ignoreTlsErrors"] = opts.IgnoreTLSErrors
	return &PageLoadTest{SynTest: newSynTest(name, TestTypePageLoad, s)}, nil
}

// SetTimeout sets the page load timeout, enforcing the minimum.
func (t *PageLoadTest) SetTimeout(millis int) error {
	if err := validateHTTPTimeout(TestTypePageLoad, millis); err != nil {
		return err
	}
	t.pageLoadSettings().PageLoad["timeout"] = millis
	return nil
}

func (t *PageLoadTest) pageLoadSettings() *PageLoadTestSettings {
	return t.Settings.(*PageLoadTestSettings)
}
