package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rotisserie/eris"
)

// contributorInfoABI is the fragment of the pool contract the proof run
// reads: contributorInfo(address) -> (contributorAddress, filesListCount).
const contributorInfoABI = `[{
	"inputs": [{"internalType": "address", "name": "contributorAddress", "type": "address"}],
	"name": "contributorInfo",
	"outputs": [
		{"internalType": "address", "name": "contributorAddress", "type": "address"},
		{"internalType": "uint256", "name": "filesListCount", "type": "uint256"}
	],
	"stateMutability": "view",
	"type": "function"
}]`

// Registry reads prior contribution counts from the on-chain pool
// registry.
type Registry interface {
	// ContributorFileCount returns how many files the owner has
	// recorded on the registry.
	ContributorFileCount(ctx context.Context, owner string) (int64, error)
}

// Client is a read-only Registry backed by an Ethereum RPC endpoint.
type Client struct {
	eth          *ethclient.Client
	contractAddr common.Address
	abi          abi.ABI
}

// NewClient dials the RPC endpoint and binds the pool contract.
func NewClient(rpcURL, contractAddr string) (*Client, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, eris.Errorf("chain: invalid contract address %q", contractAddr)
	}

	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, eris.Wrap(err, "chain: dial rpc endpoint")
	}

	parsed, err := abi.JSON(strings.NewReader(contributorInfoABI))
	if err != nil {
		return nil, eris.Wrap(err, "chain: parse contract abi")
	}

	return &Client{
		eth:          eth,
		contractAddr: common.HexToAddress(contractAddr),
		abi:          parsed,
	}, nil
}

// ContributorFileCount calls contributorInfo on the pool contract and
// returns the filesListCount component.
func (c *Client) ContributorFileCount(ctx context.Context, owner string) (int64, error) {
	if !common.IsHexAddress(owner) {
		return 0, eris.Errorf("chain: invalid owner address %q", owner)
	}

	data, err := c.abi.Pack("contributorInfo", common.HexToAddress(owner))
	if err != nil {
		return 0, eris.Wrap(err, "chain: pack contributorInfo call")
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contractAddr, Data: data}, nil)
	if err != nil {
		return 0, eris.Wrap(err, "chain: call contributorInfo")
	}

	values, err := c.abi.Unpack("contributorInfo", out)
	if err != nil {
		return 0, eris.Wrap(err, "chain: unpack contributorInfo result")
	}
	if len(values) < 2 {
		return 0, eris.Errorf("chain: contributorInfo returned %d values, want 2", len(values))
	}

	count, ok := values[1].(*big.Int)
	if !ok {
		return 0, eris.Errorf("chain: unexpected filesListCount type %T", values[1])
	}

	return count.Int64(), nil
}
