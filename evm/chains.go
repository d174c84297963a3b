package evm

import (
	"fmt"
	"math/big"
	"strings"
)

// ChainTable maps chain codes ("evm:<chainId>" or "otc:<assetId>") to chain information.
type ChainTable map[string]ChainInfo

var defaultChains = []ChainInfo{
	{Code: "evm:1", Name: "Ethereum", IsEVM: true, ChainID: big.NewInt(1), RPC: []string{"https://cloudflare-eth.com"}},
	{Code: "evm:10", Name: "Optimism", IsEVM: true, ChainID: big.NewInt(10), RPC: []string{"https://mainnet.optimism.io"}},
	{Code: "evm:56", Name: "BNB Smart Chain", IsEVM: true, ChainID: big.NewInt(56), RPC: []string{"https://bsc-dataseed.binance.org"}},
	{Code: "evm:100", Name: "Gnosis", IsEVM: true, ChainID: big.NewInt(100), RPC: []string{"https://rpc.gnosischain.com"}},
	{Code: "evm:137", Name: "Polygon", IsEVM: true, ChainID: big.NewInt(137), RPC: []string{"https://polygon-rpc.com"}},
	{Code: "evm:250", Name: "Fantom", IsEVM: true, ChainID: big.NewInt(250)},
	{Code: "evm:8453", Name: "Base", IsEVM: true, ChainID: big.NewInt(8453), RPC: []string{"https://mainnet.base.org"}},
	{Code: "evm:42161", Name: "Arbitrum One", IsEVM: true, ChainID: big.NewInt(42161), RPC: []string{"https://arb1.arbitrum.io/rpc"}},
	{Code: "evm:43114", Name: "Avalanche C-Chain", IsEVM: true, ChainID: big.NewInt(43114), RPC: []string{"https://api.avax.network/ext/bc/C/rpc"}},
	{Code: "otc:bitcoin", Name: "Bitcoin"},
	{Code: "otc:solana", Name: "Solana"},
}

// DefaultChains returns a fresh copy of the built-in chain table.
func DefaultChains() ChainTable {
	table := make(ChainTable, len(defaultChains))
	for _, chain := range defaultChains {
		table[chain.Code] = chain
	}
	return table
}

// Lookup returns the chain registered under code.
func (t ChainTable) Lookup(code string) (ChainInfo, bool) {
	chain, ok := t[code]
	return chain, ok
}

// RPCEndpoint returns the first public endpoint of a chain, or "" when the
// chain is unknown or has none.
func (t ChainTable) RPCEndpoint(code string) string {
	chain, ok := t[code]
	if !ok || len(chain.RPC) == 0 {
		return ""
	}
	return chain.RPC[0]
}

// ChainCode formats the chain code of an EVM chain id.
func ChainCode(chainID *big.Int) string {
	return fmt.Sprintf("evm:%s", chainID.String())
}

// ParseChainCode extracts the chain id from an "evm:<chainId>" code.
func ParseChainCode(code string) (*big.Int, error) {
	if !strings.HasPrefix(code, "evm:") {
		return nil, fmt.Errorf("not an EVM chain code: %s", code)
	}
	chainID, ok := new(big.Int).SetString(strings.TrimPrefix(code, "evm:"), 10)
	if !ok || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid EVM chain code: %s", code)
	}
	return chainID, nil
}
