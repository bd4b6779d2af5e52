package synthetics

// URLTestSettings configure an HTTP(S) request probe.
type URLTestSettings struct {
	PingTraceSettings
	URL map[string]any
}

func NewURLTestSettings() *URLTestSettings {
	return &URLTestSettings{
		PingTraceSettings: newPingTraceSettings(nil),
		URL:               map[string]any{},
	}
}

func (s *URLTestSettings) Schema() Schema {
	return append(s.pingTraceSchema(),
		Field{Key: "url", Get: func() any { return s.URL }, Set: setMap(&s.URL)})
}

func (s *URLTestSettings) TaskName() string { return "http" }

func (s *URLTestSettings) TargetPayload() map[string]any { return s.URL }

// URLTestOptions hold the optional parameters of CreateURLTest.
type URLTestOptions struct {
	Expiry          int // http timeout in ms, default and minimum 5000
	Method          string
	Headers         map[string]string
	Body            string
	IgnoreTLSErrors bool
	Ping            bool
	Trace           bool
}

// URLTest issues an HTTP request against a single URL.
type URLTest struct {
	SynTest
}

// CreateURLTest returns an HTTP test for target. The expiry must be at
// least MinHTTPTimeout; a zero value selects the minimum, an empty method
// defaults to GET.
func CreateURLTest(name, target string, agentIDs []string, opts URLTestOptions) (*URLTest, error) {
	if opts.Expiry == 0 {
		opts.Expiry = MinHTTPTimeout
	}
	if err := validateHTTPTimeout(TestTypeURL, opts.Expiry); err != nil {
		return nil, err
	}
	if opts.Method == "" {
		opts.Method = "GET"
	}
	headers := opts.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	tasks := []string{"http"}
	if opts.Ping {
		tasks = append(tasks, "ping")
	}
	if opts.Trace {
		tasks = append(tasks, "traceroute")
	}
	s := NewURLTestSettings()
	s.AgentIDs = agentIDs
	s.Tasks = tasks
	s.URL["target"] = target
	s.URL["expiry"] = opts.Expiry
	s.URL["http"] = map[string]any{
		"method":          opts.Method,
		"body":            opts.Body,
		"headers":         headers,
		"ignoreTlsErrors": opts.IgnoreTLSErrors,
	}
	return &URLTest{SynTest: newSynTest(name, TestTypeURL, s)}, nil
}

// SetTimeout sets the request timeout, enforcing the minimum.
func (t *URLTest) SetTimeout(millis int) error {
	if err := validateHTTPTimeout(TestTypeURL, millis); err != nil {
		return err
	}
	t.urlSettings().URL["expiry"] = millis
	return nil
}

func (t *URLTest) urlSettings() *URLTestSettings { return t.Settings.(*URLTestSettings) }
