package chain

func init() {
	// All EVM chains share coin type 60 so one key serves every chain.
	evm := func(id uint64, name, display string, currency Token) *Chain {
		currency.ChainID = id
		return &Chain{
			ID:             id,
			Name:           name,
			DisplayName:    display,
			VMType:         VMTypeEVM,
			Currency:       currency,
			CoinType:       60,
			DefaultPurpose: 44,
		}
	}

	eth := Token{
		Address:  EVMNativeAddress,
		Decimals: 18,
		Name:     "Ether",
		Symbol:   "ETH",
		LogoURI:  "https://assets.relay.link/icons/currencies/eth.png",
	}

	Register(evm(EthereumChainID, "ethereum", "Ethereum", eth))
	Register(evm(BaseChainID, "base", "Base", eth))
	Register(evm(ArbitrumChainID, "arbitrum", "Arbitrum One", eth))
	Register(evm(ApeChainID, "apechain", "ApeChain", Token{
		Address:  EVMNativeAddress,
		Decimals: 18,
		Name:     "APE",
		Symbol:   "APE",
		LogoURI:  "https://assets.relay.link/icons/currencies/ape.png",
	}))
}
