package chain

// Native currency placeholder addresses.
const (
	EVMNativeAddress    = "0x0000000000000000000000000000000000000000"
	SolanaNativeAddress = "11111111111111111111111111111111"
)

// Token describes a currency the swap widget can select.
type Token struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// DefaultFromToken is the token preselected as the swap source (SOL).
func DefaultFromToken() Token {
	c, _ := Get(SolanaChainID)
	return c.Currency
}

// DefaultToToken is the token preselected as the swap destination (APE).
func DefaultToToken() Token {
	c, _ := Get(ApeChainID)
	return c.Currency
}
