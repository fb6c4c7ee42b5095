package protect

// chainNames maps EVM chain ids to the short labels the
// threshold-encryption provider understands.
var chainNames = map[int]string{
	1:        "ethereum",
	5:        "goerli",
	10:       "optimism",
	56:       "bsc",
	100:      "xdai",
	137:      "polygon",
	8453:     "base",
	42161:    "arbitrum",
	43114:    "avalanche",
	80001:    "mumbai",
	84532:    "baseSepolia",
	11155111: "sepolia",
}

// ChainName resolves a numeric chain id to its provider label, falling
// back to "ethereum" for unmapped ids.
func ChainName(chainID int) string {
	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return "ethereum"
}
