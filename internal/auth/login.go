package auth

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/ledger"
)

type LoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
}

// ChipsRequest set 写绝对值，add/subtract 增减且结果不低于 0
type ChipsRequest struct {
	Action string `json:"action" binding:"required,oneof=set add subtract"`
	Amount int64  `json:"amount" binding:"gte=0"`
}

type Handler struct {
	nonces        NonceStore
	accounts      ledger.Accounts
	secret        []byte
	startingChips int64
	logger        *log.Logger
}

func NewHandler(nonces NonceStore, accounts ledger.Accounts, secret []byte, startingChips int64, logger *log.Logger) *Handler {
	if startingChips <= 0 {
		startingChips = ledger.DefaultStartingChips
	}
	return &Handler{nonces: nonces, accounts: accounts, secret: secret, startingChips: startingChips, logger: logger}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/auth/nonce", h.GetNonce)
	r.POST("/auth/nonce", h.GetNonce)
	r.POST("/auth/login", h.Login)
}

// SignMessage 钱包需要签名的原文
func SignMessage(nonce string) string {
	return "Sign this message to authenticate with ChipTracker. Nonce: " + nonce
}

// RecoverAddress 按 personal_sign 规则恢复签名者地址
func RecoverAddress(msg, signature string) (string, error) {
	// 与 MetaMask personal_sign 一致的前缀
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	hash := crypto.Keccak256Hash([]byte(prefix))

	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return "", fmt.Errorf("malformed signature")
	}
	// 修正 V 值
	if sigBytes[crypto.RecoveryIDOffset] >= 27 {
		sigBytes[crypto.RecoveryIDOffset] -= 27
	}
	pubKey, err := crypto.SigToPub(hash.Bytes(), sigBytes)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// POST /auth/login body: {address, signature, nonce}
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "bad request"})
		return
	}
	ctx := c.Request.Context()

	ok, err := h.nonces.Take(ctx, req.Nonce)
	if err != nil {
		h.logger.Error("load nonce failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "nonce store unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid nonce"})
		return
	}

	recovered, err := RecoverAddress(SignMessage(req.Nonce), req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "signature verify failed"})
		return
	}
	if !strings.EqualFold(recovered, req.Address) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "signature mismatch"})
		return
	}

	address := ledger.NormalizeID(recovered)
	account, err := h.accounts.EnsureAccount(ctx, address, shortAddress(address), h.startingChips)
	if err != nil {
		c.JSON(errs.Response(err))
		return
	}

	jwtStr, err := IssueToken(h.secret, address, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "jwt generation failed"})
		return
	}
	h.logger.Info("wallet login", "address", address)
	c.JSON(http.StatusOK, gin.H{"success": true, "jwt": jwtStr, "account": account})
}

// GET /accounts/me
func (h *Handler) Me(c *gin.Context) {
	account, err := h.accounts.GetAccount(c.Request.Context(), c.GetString("address"))
	if err != nil {
		c.JSON(errs.Response(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "account": account})
}

// POST /accounts/me/chips body: {action, amount}
func (h *Handler) UpdateChips(c *gin.Context) {
	var req ChipsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	address := c.GetString("address")

	var err error
	switch req.Action {
	case "set":
		if _, err = h.accounts.GetAccount(ctx, address); err == nil {
			err = h.accounts.SetBalances(ctx, map[string]int64{address: req.Amount})
		}
	case "add":
		_, err = h.accounts.AdjustChips(ctx, address, req.Amount)
	case "subtract":
		_, err = h.accounts.AdjustChips(ctx, address, -req.Amount)
	}
	if err != nil {
		c.JSON(errs.Response(err))
		return
	}

	account, err := h.accounts.GetAccount(ctx, address)
	if err != nil {
		c.JSON(errs.Response(err))
		return
	}
	h.logger.Info("account chips updated", "address", address, "action", req.Action, "amount", req.Amount, "total", account.TotalChips)
	c.JSON(http.StatusOK, gin.H{"success": true, "account": account})
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
