package verify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"Crackgo/internal/httpclient"
	"Crackgo/internal/logger"

	"github.com/tidwall/gjson"
)

// probeQuery is the smallest operation every GraphQL server must answer.
const probeQuery = `{"query":"query { __typename }"}`

// graphQLErrorPatterns are error messages GraphQL servers commonly send for malformed or refused requests.
var graphQLErrorPatterns = []string{
	"Cannot query field",
	"Syntax Error",
	"No query string",
	"Must provide query string",
	"GraphQL",
}

// EndpointProber confirms that a target answers like a GraphQL endpoint.
type EndpointProber struct {
	client *httpclient.Client // HTTP client for making requests.
	log    *logger.Logger     // Logger for outputting messages.
}

// NewEndpointProber creates a new instance of EndpointProber.
func NewEndpointProber(client *httpclient.Client, log *logger.Logger) *EndpointProber {
	return &EndpointProber{
		client: client,
		log:    log,
	}
}

// Probe sends a __typename query to target and checks that the reply looks like GraphQL.
func (p *EndpointProber) Probe(ctx context.Context, target string) error {
	p.log.Debug("Endpoint probe: POST %s", target)

	resp, err := p.client.Post(ctx, target, "application/json", strings.NewReader(probeQuery))
	if err != nil {
		return &PreconditionError{Check: "url", Message: fmt.Sprintf("cannot reach %s", target), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &PreconditionError{Check: "url", Message: "reading probe response", Err: err}
	}

	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if parsed.Get("data.__typename").Exists() {
			p.log.Info("GraphQL endpoint confirmed at: %s (root type %s)", target, parsed.Get("data.__typename").String())
			return nil
		}
		if parsed.Get("errors").IsArray() {
			p.log.Warn("Endpoint %s answered the probe with GraphQL errors: %s", target, parsed.Get("errors.0.message").String())
			return nil
		}
	}

	bodyString := string(body)
	for _, pattern := range graphQLErrorPatterns {
		if strings.Contains(bodyString, pattern) {
			p.log.Warn("Endpoint %s did not answer the probe as JSON but mentions %q; continuing.", target, pattern)
			return nil
		}
	}

	return &PreconditionError{
		Check:   "url",
		Message: fmt.Sprintf("%s does not look like a GraphQL endpoint (HTTP %d)", target, resp.StatusCode),
	}
}
