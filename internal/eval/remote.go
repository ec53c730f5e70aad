package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const defaultRemoteTimeout = 5 * time.Second

// RemoteProvider queries a cloud-eval style HTTP endpoint:
// GET {base}/api/eval?fen=... returning
// {"cp":12,"mate":0,"depth":22,"pvs":[{"moves":"e2e4 e7e5 ..."}]}.
type RemoteProvider struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

type remoteResponse struct {
	CP    int  `json:"cp"`
	Mate  int  `json:"mate"`
	Depth int  `json:"depth"`
	PVs   []struct {
		Moves string `json:"moves"`
	} `json:"pvs"`
}

func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &fasthttp.Client{
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
			MaxConnsPerHost: 32,
		},
		timeout: timeout,
	}
}

func (p *RemoteProvider) Name() string { return "remote" }

func (p *RemoteProvider) Enabled() bool { return p != nil && p.baseURL != "" }

func (p *RemoteProvider) Evaluate(ctx context.Context, fen string, opts Options) (Evaluation, error) {
	resp, err := p.fetch(ctx, fen, opts)
	if err != nil {
		return Evaluation{}, err
	}
	ev := Evaluation{
		ScoreCP: resp.CP,
		Mate:    resp.Mate,
		Depth:   resp.Depth,
		Source:  p.Name(),
	}
	if mv := firstMove(resp); mv != "" {
		ev.BestMove = mv
	}
	return ev, nil
}

func (p *RemoteProvider) BestMove(ctx context.Context, fen string, opts Options) (string, error) {
	resp, err := p.fetch(ctx, fen, opts)
	if err != nil {
		return "", err
	}
	mv := firstMove(resp)
	if mv == "" {
		return "", ErrNoMove
	}
	return mv, nil
}

func (p *RemoteProvider) fetch(ctx context.Context, fen string, opts Options) (*remoteResponse, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, ctx.Err()
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(p.baseURL + "/api/eval?fen=" + url.QueryEscape(strings.TrimSpace(fen)))
	req.Header.Set("Accept", "application/json")

	if err := p.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("eval request: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("eval request: unexpected status %d", code)
	}
	var out remoteResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("eval response: %w", err)
	}
	return &out, nil
}

func firstMove(resp *remoteResponse) string {
	if resp == nil || len(resp.PVs) == 0 {
		return ""
	}
	fields := strings.Fields(resp.PVs[0].Moves)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
