package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	explorerTxPrefix = "https://etherscan.io/tx/"
	ethDecimals      = 18
	swapDeadline     = 20 * time.Minute
)

type UniswapConfig struct {
	Router        string
	WETH          string
	QuoteToken    string
	QuoteSymbol   string
	QuoteDecimals int32
	SlippagePct   decimal.Decimal
}

// UniswapV2 swaps between ETH and one quote token through the V2 router.
type UniswapV2 struct {
	client      *Client
	routerAddr  common.Address
	wethAddr    common.Address
	quoteAddr   common.Address
	quoteSymbol string
	quoteDec    int32
	slippage    decimal.Decimal
	routerABI   abi.ABI
	erc20ABI    abi.ABI
}

func NewUniswapV2(client *Client, cfg UniswapConfig) (*UniswapV2, error) {
	rABI, eABI, err := parseABIs()
	if err != nil {
		return nil, fmt.Errorf("parse ABIs: %w", err)
	}
	for name, addr := range map[string]string{"router": cfg.Router, "weth": cfg.WETH, "quote token": cfg.QuoteToken} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid %s address %q", name, addr)
		}
	}
	return &UniswapV2{
		client:      client,
		routerAddr:  common.HexToAddress(cfg.Router),
		wethAddr:    common.HexToAddress(cfg.WETH),
		quoteAddr:   common.HexToAddress(cfg.QuoteToken),
		quoteSymbol: cfg.QuoteSymbol,
		quoteDec:    cfg.QuoteDecimals,
		slippage:    cfg.SlippagePct,
		routerABI:   rABI,
		erc20ABI:    eABI,
	}, nil
}

func (u *UniswapV2) QuoteSymbol() string { return u.quoteSymbol }

func ExplorerURL(txHash string) string { return explorerTxPrefix + txHash }

// TokenBalance returns the wallet's quote token balance.
func (u *UniswapV2) TokenBalance(ctx context.Context) (decimal.Decimal, error) {
	data, err := u.erc20ABI.Pack("balanceOf", u.client.WalletAddress())
	if err != nil {
		return decimal.Zero, err
	}
	result, err := u.client.CallContract(ctx, u.quoteAddr, data)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf call: %w", err)
	}
	return fromWei(new(big.Int).SetBytes(result), u.quoteDec), nil
}

func (u *UniswapV2) ETHBalance(ctx context.Context) (decimal.Decimal, error) {
	bal, err := u.client.ETHBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return fromWei(bal, ethDecimals), nil
}

// ensureAllowance approves the router for max spend when the current
// allowance cannot cover amount, and waits for the approval to be mined.
func (u *UniswapV2) ensureAllowance(ctx context.Context, amount *big.Int) error {
	data, err := u.erc20ABI.Pack("allowance", u.client.WalletAddress(), u.routerAddr)
	if err != nil {
		return err
	}
	result, err := u.client.CallContract(ctx, u.quoteAddr, data)
	if err != nil {
		return fmt.Errorf("allowance call: %w", err)
	}
	if new(big.Int).SetBytes(result).Cmp(amount) >= 0 {
		return nil
	}

	fmt.Printf("[DEX] Setting %s allowance for Uniswap router\n", u.quoteSymbol)
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	approveData, err := u.erc20ABI.Pack("approve", u.routerAddr, maxUint256)
	if err != nil {
		return err
	}
	tx, err := u.client.SignAndSend(ctx, u.quoteAddr, big.NewInt(0), approveData)
	if err != nil {
		return fmt.Errorf("approve tx: %w", err)
	}
	if _, err := u.client.WaitMined(ctx, tx); err != nil {
		return fmt.Errorf("approve tx: %w", err)
	}
	fmt.Printf("[DEX] Allowance confirmed: %s\n", ExplorerURL(tx.Hash().Hex()))
	return nil
}

func (u *UniswapV2) amountOut(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	data, err := u.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	result, err := u.client.CallContract(ctx, u.routerAddr, data)
	if err != nil {
		return nil, fmt.Errorf("getAmountsOut call: %w", err)
	}
	vals, err := u.routerABI.Unpack("getAmountsOut", result)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("unpack getAmountsOut: %v", err)
	}
	amounts, ok := vals[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, fmt.Errorf("unexpected getAmountsOut result")
	}
	return amounts[len(amounts)-1], nil
}

// minOut is the router quote reduced by the slippage tolerance. A quote
// already below the caller's slipped floor fails before anything is sent.
func (u *UniswapV2) minOut(quoted *big.Int, floor *big.Int) (*big.Int, error) {
	if quoted.Cmp(floor) < 0 {
		return nil, fmt.Errorf("router quote %s below minimum %s", quoted, floor)
	}
	out := decimal.NewFromBigInt(quoted, 0).Mul(u.keepRatio()).Truncate(0).BigInt()
	if out.Cmp(floor) < 0 {
		return floor, nil
	}
	return out, nil
}

func (u *UniswapV2) keepRatio() decimal.Decimal {
	return decimal.NewFromInt(100).Sub(u.slippage).Div(decimal.NewFromInt(100))
}

// SwapQuoteForETH spends quoteIn of the quote token for ETH and returns the
// tx hash. The swap reverts on-chain if less than minETH would be received.
func (u *UniswapV2) SwapQuoteForETH(ctx context.Context, quoteIn, minETH decimal.Decimal) (string, error) {
	amountIn := toWei(quoteIn, u.quoteDec)
	if err := u.ensureAllowance(ctx, amountIn); err != nil {
		return "", err
	}

	path := []common.Address{u.quoteAddr, u.wethAddr}
	quoted, err := u.amountOut(ctx, amountIn, path)
	if err != nil {
		return "", err
	}
	minOutWei, err := u.minOut(quoted, toWei(minETH.Mul(u.keepRatio()), ethDecimals))
	if err != nil {
		return "", err
	}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	data, err := u.routerABI.Pack("swapExactTokensForETH",
		amountIn, minOutWei, path, u.client.WalletAddress(), deadline)
	if err != nil {
		return "", fmt.Errorf("pack swapExactTokensForETH: %w", err)
	}
	tx, err := u.client.SignAndSend(ctx, u.routerAddr, big.NewInt(0), data)
	if err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// SwapETHForQuote sells ethIn for the quote token and returns the tx hash.
func (u *UniswapV2) SwapETHForQuote(ctx context.Context, ethIn, minQuote decimal.Decimal) (string, error) {
	value := toWei(ethIn, ethDecimals)
	path := []common.Address{u.wethAddr, u.quoteAddr}
	quoted, err := u.amountOut(ctx, value, path)
	if err != nil {
		return "", err
	}
	minOutWei, err := u.minOut(quoted, toWei(minQuote.Mul(u.keepRatio()), u.quoteDec))
	if err != nil {
		return "", err
	}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	data, err := u.routerABI.Pack("swapExactETHForTokens",
		minOutWei, path, u.client.WalletAddress(), deadline)
	if err != nil {
		return "", fmt.Errorf("pack swapExactETHForTokens: %w", err)
	}
	tx, err := u.client.SignAndSend(ctx, u.routerAddr, value, data)
	if err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func toWei(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

func fromWei(v *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(v, -decimals)
}
