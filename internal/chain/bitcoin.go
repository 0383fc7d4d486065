package chain

func init() {
	Register(&Chain{
		ID:          BitcoinChainID,
		Name:        "bitcoin",
		DisplayName: "Bitcoin",
		VMType:      VMTypeBVM,
		Currency: Token{
			ChainID:  BitcoinChainID,
			Address:  "bc1qxvay4an52gcghxq5lavact7r6qe9l4laedsazz8fj2ee2cy47tlqff4aj4",
			Decimals: 8,
			Name:     "Bitcoin",
			Symbol:   "BTC",
			LogoURI:  "https://assets.relay.link/icons/currencies/btc.png",
		},

		// BIP84 native SegWit (bc1q...)
		CoinType:       0,
		DefaultPurpose: 84,
		Bech32HRP:      "bc",
	})
}
