package coordinator

import (
	"context"
	"math/big"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/chain"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
	"github.com/saingsab/jaamlong/internal/signer"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ReleaseResult is the terminal outcome of a verify-and-release run.
type ReleaseResult struct {
	TransferID      uuid.UUID         `json:"id"`
	OriginTxHash    string            `json:"origin_tx_hash"`
	DestinationHash string            `json:"destin_tx_hash"`
	Status          models.StatusName `json:"status"`
}

// VerifyAndRelease validates the reported origin deposit, records it, signs
// and broadcasts the destination release and finalizes the transfer.
//
// Failures before the origin hash is recorded leave the transfer PENDING.
// After a broadcast was accepted, finalization continues in a detached task
// even if the caller disconnects.
func (c *Coordinator) VerifyAndRelease(ctx context.Context, transferID uuid.UUID, originHash string) (res *ReleaseResult, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveTransferOp("verify_release", start, err)
		if err != nil && errs.KindOf(err) == errs.Internal {
			c.logger.Error().Err(err).Stringer("transfer", transferID).Msg("internal error")
		}
	}()

	if !txHashPattern.MatchString(originHash) {
		return nil, errs.Validationf(errs.CodeBadHash, "transaction hash is incorrect")
	}

	transfer, err := c.ledger.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	status, err := c.ledger.GetStatus(ctx, transfer.StatusID)
	if err != nil {
		return nil, err
	}
	if status.StatusName.Terminal() {
		return nil, errs.Preconditionf(errs.CodeAlreadyFinalized, "transfer %s already %s", transferID, status.StatusName)
	}
	resuming := false
	if transfer.OriginTxHash != nil {
		if *transfer.OriginTxHash != originHash {
			return nil, errs.Preconditionf(errs.CodeIllegalTransition,
				"transfer %s already bound to a different origin hash", transferID)
		}
		// Same hash re-submitted after a transient failure: the deposit,
		// confirmations and liquidity are checked again, the origin hash is
		// not re-recorded, and the release is retried.
		resuming = true
	}

	origin, err := c.ledger.GetNetwork(ctx, transfer.OriginNetworkID)
	if err != nil {
		return nil, err
	}
	destination, err := c.ledger.GetNetwork(ctx, transfer.DestinationNetworkID)
	if err != nil {
		return nil, err
	}
	fromToken, err := c.ledger.GetToken(ctx, transfer.FromTokenID)
	if err != nil {
		return nil, err
	}
	toToken, err := c.ledger.GetToken(ctx, transfer.ToTokenID)
	if err != nil {
		return nil, err
	}
	bridge, err := c.destinationBridge(ctx, destination)
	if err != nil {
		return nil, err
	}
	if bridge.BridgeAddress == "" {
		return nil, errs.Internalf(errs.CodeBug, nil, "destination bridge address not configured")
	}

	depositBlock, err := c.verifyDeposit(ctx, transfer, origin, fromToken, originHash)
	if err != nil {
		return nil, err
	}

	confirmations, err := c.gateway.Confirmations(ctx, origin.ID, depositBlock)
	if err != nil {
		return nil, err
	}
	if minConf := c.gateway.MinConfirmations(origin.ID); confirmations < minConf {
		return nil, errs.Preconditionf(errs.CodeInsufficientConfirmations,
			"block confirmation %d less than %d", confirmations, minConf)
	}

	// Liquidity probe before the transfer is locked to this deposit: a
	// shortfall must stay retryable.
	bridgeAddr := common.HexToAddress(bridge.BridgeAddress)
	liquidity, err := c.gateway.Balance(ctx, destination.ID, toToken, bridgeAddr)
	if err != nil {
		return nil, err
	}
	if liquidity.Cmp(transfer.TransferAmount) < 0 {
		return nil, errs.Preconditionf(errs.CodeInsufficientBalance,
			"destination bridge holds %s, release requires %s", liquidity, transfer.TransferAmount)
	}

	if !resuming {
		if err = c.ledger.SetOriginHash(ctx, transferID, originHash); err != nil {
			return nil, err
		}
		c.logger.Info().Stringer("transfer", transferID).Str("origin_hash", originHash).Msg("origin deposit verified")
	}

	// From here on, failures are terminal unless transient.
	raw, err := c.signRelease(ctx, transfer, destination, toToken, bridge)
	if err != nil {
		return nil, c.failUnlessTransient(transferID, nil, err)
	}

	destHash, err := c.gateway.SendRaw(ctx, destination.ID, raw)
	if err != nil {
		return nil, c.failUnlessTransient(transferID, nil, err)
	}
	c.logger.Info().Stringer("transfer", transferID).Str("destin_hash", destHash.Hex()).Msg("release broadcast")

	// The broadcast is on the wire; finalization must outlive the request.
	done := make(chan *ReleaseResult, 1)
	fail := make(chan error, 1)
	c.finalizers.Add(1)
	go func() {
		defer c.finalizers.Done()
		r, ferr := c.finalize(context.WithoutCancel(ctx), transferID, originHash, destination.ID, destHash)
		if ferr != nil {
			fail <- ferr
			return
		}
		done <- r
	}()

	select {
	case res = <-done:
		return res, nil
	case err = <-fail:
		return nil, err
	case <-ctx.Done():
		// Client gone; the finalizer completes on its own.
		return nil, errs.Upstreamf(errs.CodeReceiptTimeout, ctx.Err(), "request cancelled while awaiting receipt")
	}
}

// verifyDeposit checks the on-chain deposit against the quoted transfer and
// returns the hash of the block that included it.
func (c *Coordinator) verifyDeposit(ctx context.Context, transfer *models.Transfer, origin *models.Network, fromToken *models.Token, originHash string) (common.Hash, error) {
	hash := common.HexToHash(originHash)
	bridgeAddr := common.HexToAddress(origin.BridgeAccountAddress)
	sender := common.HexToAddress(transfer.SenderAddress)

	if fromToken.IsNative() {
		tx, err := c.gateway.TransactionByHash(ctx, origin.ID, hash)
		if err != nil {
			return common.Hash{}, err
		}
		if tx.From != sender {
			return common.Hash{}, errs.Mismatch("from", "deposit sender does not match")
		}
		if tx.To == nil || *tx.To != bridgeAddr {
			return common.Hash{}, errs.Mismatch("to", "deposit recipient is not the bridge account")
		}
		value := (*big.Int)(tx.Value)
		if value == nil || new(big.Int).Sub(value, transfer.BridgeFee).Cmp(transfer.TransferAmount) != 0 {
			return common.Hash{}, errs.Mismatch("value", "deposit value does not match")
		}
		if tx.BlockHash == nil {
			return common.Hash{}, errs.Preconditionf(errs.CodeInsufficientConfirmations, "deposit not yet included in a block")
		}
		return *tx.BlockHash, nil
	}

	receipt, err := c.gateway.Receipt(ctx, origin.ID, hash)
	if err != nil {
		return common.Hash{}, err
	}
	if len(receipt.Logs) == 0 {
		return common.Hash{}, errs.Mismatch("value", "deposit emitted no transfer event")
	}
	log := receipt.Logs[0]
	if len(log.Topics) < 3 {
		return common.Hash{}, errs.Upstreamf(errs.CodeDecodeError, nil, "transfer event has %d topics", len(log.Topics))
	}
	if len(log.Data) != 32 {
		return common.Hash{}, errs.Upstreamf(errs.CodeDecodeError, nil, "transfer event data is %d bytes", len(log.Data))
	}
	from := common.BytesToAddress(log.Topics[1].Bytes())
	to := common.BytesToAddress(log.Topics[2].Bytes())
	value := new(big.Int).SetBytes(log.Data)

	if from != sender {
		return common.Hash{}, errs.Mismatch("from", "deposit sender does not match")
	}
	if to != bridgeAddr {
		return common.Hash{}, errs.Mismatch("to", "deposit recipient is not the bridge account")
	}
	if new(big.Int).Sub(value, transfer.BridgeFee).Cmp(transfer.TransferAmount) != 0 {
		return common.Hash{}, errs.Mismatch("value", "deposit value does not match")
	}
	return receipt.BlockHash, nil
}

// signRelease populates the destination envelope and has the signer service
// produce the raw transaction. The release always equals TransferAmount; the
// fee stays with the origin bridge account.
func (c *Coordinator) signRelease(ctx context.Context, transfer *models.Transfer, destination *models.Network, toToken *models.Token, bridge *models.Bridge) ([]byte, error) {
	bridgeAddr := common.HexToAddress(bridge.BridgeAddress)
	nonce, err := c.gateway.Nonce(ctx, destination.ID, bridgeAddr)
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.gateway.GasPrice(ctx, destination.ID)
	if err != nil {
		return nil, err
	}
	gas, err := c.gateway.EstimateGas(ctx, destination.ID, chain.CallMsg{})
	if err != nil {
		return nil, err
	}
	chainID, err := c.gateway.ChainID(ctx, destination.ID)
	if err != nil {
		return nil, err
	}

	req := &signer.SignRequest{
		NetworkRPC:    destination.NetworkRPC,
		BridgeAddress: bridge.BridgeAddress,
		Tx: signer.TxFields{
			ChainID:         chainID.String(),
			To:              transfer.ReceiverAddress,
			Nonce:           new(big.Int).SetUint64(nonce).String(),
			Value:           transfer.TransferAmount.String(),
			Gas:             gas.String(),
			GasPrice:        gasPrice.String(),
			TransactionType: "2",
		},
	}
	if toToken.AssetClass == models.AssetERC20 {
		addr := toToken.TokenAddress
		req.TokenAddress = &addr
		req.ABI = toToken.ABI
		return c.signer.SignERC20(ctx, req)
	}
	return c.signer.SignNative(ctx, req)
}

// finalize polls the destination receipt and drives the transfer to its
// terminal status. The transfer stays PENDING on a poll-budget timeout so a
// retry can pick it up.
func (c *Coordinator) finalize(ctx context.Context, transferID uuid.UUID, originHash string, destinationID uuid.UUID, destHash common.Hash) (*ReleaseResult, error) {
	receipt, err := c.pollReceipt(ctx, destinationID, destHash)
	if err != nil {
		c.logger.Warn().Err(err).Stringer("transfer", transferID).Msg("receipt polling gave up; transfer stays PENDING")
		return nil, err
	}

	newStatus := models.StatusSuccess
	if receipt.Status == 0 {
		newStatus = models.StatusFail
	}
	hashStr := destHash.Hex()
	if err := c.ledger.Finalize(ctx, transferID, &hashStr, newStatus); err != nil {
		if errs.Is(err, errs.CodeAlreadyFinalized) {
			// A concurrent retry won; report the stored outcome.
			return c.storedResult(ctx, transferID, originHash)
		}
		return nil, err
	}

	c.logger.Info().
		Stringer("transfer", transferID).
		Str("destin_hash", hashStr).
		Str("status", string(newStatus)).
		Msg("transfer finalized")

	return &ReleaseResult{
		TransferID:      transferID,
		OriginTxHash:    originHash,
		DestinationHash: hashStr,
		Status:          newStatus,
	}, nil
}

// pollReceipt waits for the destination receipt to appear with enough
// confirmations, bounded by the configured poll budget.
func (c *Coordinator) pollReceipt(ctx context.Context, networkID uuid.UUID, hash common.Hash) (*chain.Receipt, error) {
	deadline := time.Now().Add(c.cfg.Chain.ReceiptPollBudget)
	minConf := c.gateway.MinConfirmations(networkID)

	for {
		receipt, err := c.gateway.Receipt(ctx, networkID, hash)
		switch {
		case err == nil:
			confirmations, cerr := c.gateway.Confirmations(ctx, networkID, receipt.BlockHash)
			if cerr == nil && confirmations >= minConf {
				return receipt, nil
			}
		case !errs.Is(err, errs.CodeNotFound) && !errs.Is(err, errs.CodeChainUnavailable):
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, errs.Upstreamf(errs.CodeReceiptTimeout, nil, "no receipt for %s within poll budget", hash)
		}
		select {
		case <-ctx.Done():
			return nil, errs.Upstreamf(errs.CodeReceiptTimeout, ctx.Err(), "receipt polling cancelled")
		case <-time.After(c.cfg.Chain.ReceiptPollDelay):
		}
	}
}

// failUnlessTransient finalizes the transfer as FAIL for non-transient
// post-verification errors and passes transient ones through untouched.
func (c *Coordinator) failUnlessTransient(transferID uuid.UUID, destHash *string, err error) error {
	if errs.Transient(err) {
		return err
	}
	fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := c.ledger.Finalize(fctx, transferID, destHash, models.StatusFail); ferr != nil {
		c.logger.Error().Err(ferr).Stringer("transfer", transferID).Msg("failed to mark transfer FAIL")
	}
	return err
}

// storedResult reloads the transfer after losing a finalization race.
func (c *Coordinator) storedResult(ctx context.Context, transferID uuid.UUID, originHash string) (*ReleaseResult, error) {
	transfer, err := c.ledger.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	status, err := c.ledger.GetStatus(ctx, transfer.StatusID)
	if err != nil {
		return nil, err
	}
	res := &ReleaseResult{
		TransferID:   transferID,
		OriginTxHash: originHash,
		Status:       status.StatusName,
	}
	if transfer.DestinationTxHash != nil {
		res.DestinationHash = *transfer.DestinationTxHash
	}
	return res, nil
}
