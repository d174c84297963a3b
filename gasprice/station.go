package gasprice

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	paylink "github.com/paylink-foundation/paylink/go"
)

// DefaultStationURL is the default gas station endpoint
const DefaultStationURL = "https://gasstation-mainnet.matic.network/v2"

// DefaultTimeout is the default HTTP client timeout
const DefaultTimeout = 5 * time.Second

var gwei = big.NewInt(1_000_000_000)

// StationConfig contains configuration for the gas station client
type StationConfig struct {
	// URL of the gas station. Defaults to the Polygon mainnet station.
	URL string
	// Timeout is the HTTP client timeout. Defaults to 5 seconds.
	Timeout time.Duration
}

// Station reads the "standard" fee tier of a gas station service.
type Station struct {
	url        string
	httpClient *http.Client
}

// NewStation creates a new gas station client
func NewStation(config StationConfig) *Station {
	url := config.URL
	if url == "" {
		url = DefaultStationURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Station{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CurrentFees fetches the standard tier. Values are quoted in gwei and rounded
// up to a whole gwei before conversion to wei.
func (s *Station) CurrentFees(ctx context.Context) (paylink.Fees, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return paylink.Fees{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return paylink.Fees{}, fmt.Errorf("failed to query gas station: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return paylink.Fees{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return paylink.Fees{}, fmt.Errorf("gas station returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return paylink.Fees{}, fmt.Errorf("gas station returned invalid JSON")
	}

	maxFee, err := gweiField(body, "standard.maxFee")
	if err != nil {
		return paylink.Fees{}, err
	}
	priorityFee, err := gweiField(body, "standard.maxPriorityFee")
	if err != nil {
		return paylink.Fees{}, err
	}

	return paylink.Fees{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: priorityFee}, nil
}

func gweiField(body []byte, path string) (*big.Int, error) {
	field := gjson.GetBytes(body, path)
	if field.Type != gjson.Number {
		return nil, fmt.Errorf("gas station response has no numeric %s", path)
	}
	value := field.Float()
	if value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, fmt.Errorf("gas station returned invalid %s: %v", path, value)
	}
	whole := new(big.Int).SetUint64(uint64(math.Ceil(value)))
	return whole.Mul(whole, gwei), nil
}

var _ paylink.FeeSource = (*Station)(nil)
