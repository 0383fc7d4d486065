package chain

func init() {
	Register(&Chain{
		ID:          SolanaChainID,
		Name:        "solana",
		DisplayName: "Solana",
		VMType:      VMTypeSVM,
		Currency: Token{
			ChainID:  SolanaChainID,
			Address:  SolanaNativeAddress,
			Decimals: 9,
			Name:     "sol",
			Symbol:   "SOL",
			LogoURI:  "https://assets.relay.link/icons/currencies/sol.png",
		},

		CoinType:       501,
		DefaultPurpose: 44,
	})
}
