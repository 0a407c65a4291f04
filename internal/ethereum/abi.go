package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABIs for Uniswap V2 Router02 and ERC20, limited to the calls the
// venue makes.

const routerABIJSON = `[
	{
		"name": "getAmountsOut",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "amountIn", "type": "uint256"},
			{"name": "path",     "type": "address[]"}
		],
		"outputs": [{"name": "amounts", "type": "uint256[]"}]
	},
	{
		"name": "swapExactTokensForETH",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "amountIn",     "type": "uint256"},
			{"name": "amountOutMin", "type": "uint256"},
			{"name": "path",         "type": "address[]"},
			{"name": "to",           "type": "address"},
			{"name": "deadline",     "type": "uint256"}
		],
		"outputs": [{"name": "amounts", "type": "uint256[]"}]
	},
	{
		"name": "swapExactETHForTokens",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "amountOutMin", "type": "uint256"},
			{"name": "path",         "type": "address[]"},
			{"name": "to",           "type": "address"},
			{"name": "deadline",     "type": "uint256"}
		],
		"outputs": [{"name": "amounts", "type": "uint256[]"}]
	}
]`

const erc20ABIJSON = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "_owner", "type": "address"}],
		"outputs": [{"name": "balance", "type": "uint256"}]
	},
	{
		"name": "allowance",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "_owner",   "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "approve",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value",   "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "bool"}]
	}
]`

func parseABIs() (router abi.ABI, erc20 abi.ABI, err error) {
	router, err = abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return router, erc20, err
	}
	erc20, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	return router, erc20, err
}
