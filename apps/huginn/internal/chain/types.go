package chain

// Balance is the native-denom balance of an address, amount in base units.
type Balance struct {
	Denom  string
	Amount string
}

type Validator struct {
	Moniker string
	Jailed  bool
}

type Delegation struct {
	ValidatorAddress string
	Amount           string
}

// Tx is a transaction returned by a search, with its hash in lowercase hex and the type URLs of
// the messages it carries.
type Tx struct {
	Hash     string
	Height   string
	Messages []string
}

type balancesResponse struct {
	Balances []struct {
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	} `json:"balances"`
}

type validatorsResponse struct {
	Validators []struct {
		OperatorAddress string `json:"operator_address"`
		Jailed          bool   `json:"jailed"`
		Description     struct {
			Moniker string `json:"moniker"`
		} `json:"description"`
	} `json:"validators"`
}

type delegationsResponse struct {
	DelegationResponses []struct {
		Delegation struct {
			DelegatorAddress string `json:"delegator_address"`
			ValidatorAddress string `json:"validator_address"`
		} `json:"delegation"`
		Balance struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		} `json:"balance"`
	} `json:"delegation_responses"`
}

type txSearchResult struct {
	Txs []struct {
		Hash   string `json:"hash"`
		Height string `json:"height"`
		Tx     string `json:"tx"`
	} `json:"txs"`
	TotalCount string `json:"total_count"`
}
