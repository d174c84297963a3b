package evm

import (
	"math/big"
)

const (
	// Names registry function names
	FunctionMetadataURIs                  = "metadataURIs"
	FunctionLinkingPrices                 = "linkingPrices"
	FunctionBasePrice                     = "basePrice"
	FunctionTransfers                     = "transfers"
	FunctionGetHashForRegisterBySignature = "getHashForRegisterBySignature"
	FunctionRegister                      = "register"
	FunctionRegisterBySignature           = "registerBySignature"
	FunctionSetMetadataURI                = "setMetadataURI"
	FunctionRelease                       = "release"
	FunctionTransfer                      = "transfer"
	FunctionClaim                         = "claim"

	// ERC-20 function names
	FunctionSymbol   = "symbol"
	FunctionName     = "name"
	FunctionDecimals = "decimals"

	// Call signatures of the operations the relay is allowed to submit
	SignatureRegisterBySignature = "registerBySignature(bytes32 _name,address _owner,bytes _metadataURI,bytes _signature)"
	SignatureSubscribeWithPermit = "subscribeWithPermit(uint256 _planId,address _subscriber,uint8 v,bytes32 r,bytes32 s)"

	// Transaction status
	TxStatusSuccess = 1

	// NativeDecimals is the decimals of the native asset on every supported EVM chain.
	NativeDecimals = 18

	// ZeroAddress is the EVM zero address
	ZeroAddress = "0x0000000000000000000000000000000000000000"
)

var (
	// HomeChainID is the chain on which the authoritative names registry lives (Polygon PoS).
	HomeChainID = big.NewInt(137)

	// NamesRegistryABI covers the names registry surface used by the router, the client and the relay.
	NamesRegistryABI = []byte(`[
		{
			"inputs": [{"name": "", "type": "bytes32"}],
			"name": "metadataURIs",
			"outputs": [{"name": "", "type": "bytes"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [{"name": "", "type": "address"}],
			"name": "linkingPrices",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "basePrice",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [{"name": "", "type": "bytes32"}],
			"name": "transfers",
			"outputs": [{"name": "", "type": "address"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "_name", "type": "bytes32"},
				{"name": "_owner", "type": "address"},
				{"name": "_metadataURI", "type": "bytes"}
			],
			"name": "getHashForRegisterBySignature",
			"outputs": [{"name": "", "type": "bytes32"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "_name", "type": "bytes32"},
				{"name": "_metadataURI", "type": "bytes"}
			],
			"name": "register",
			"outputs": [],
			"stateMutability": "payable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "_name", "type": "bytes32"},
				{"name": "_owner", "type": "address"},
				{"name": "_metadataURI", "type": "bytes"},
				{"name": "_signature", "type": "bytes"}
			],
			"name": "registerBySignature",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "_name", "type": "bytes32"},
				{"name": "_metadataURI", "type": "bytes"}
			],
			"name": "setMetadataURI",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "_name", "type": "bytes32"}],
			"name": "release",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "_name", "type": "bytes32"},
				{"name": "_recipient", "type": "address"}
			],
			"name": "transfer",
			"outputs": [],
			"stateMutability": "payable",
			"type": "function"
		},
		{
			"inputs": [{"name": "_name", "type": "bytes32"}],
			"name": "claim",
			"outputs": [],
			"stateMutability": "payable",
			"type": "function"
		}
	]`)

	// ERC20MetadataABI for token liveness checks and decimals lookups
	ERC20MetadataABI = []byte(`[
		{
			"inputs": [],
			"name": "symbol",
			"outputs": [{"name": "", "type": "string"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "name",
			"outputs": [{"name": "", "type": "string"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "decimals",
			"outputs": [{"name": "", "type": "uint8"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)

	// ERC20TransferABI for token payments
	ERC20TransferABI = []byte(`[
		{
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "transfer",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)
)
