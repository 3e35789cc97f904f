package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/saingsab/jaamlong/internal/coordinator"
	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

// requestTxBody is the POST /request-tx wire format. Token fields carry
// ledger ids, not contract addresses.
type requestTxBody struct {
	SenderAddress    string  `json:"sender_address"`
	ReceiverAddress  string  `json:"receiver_address"`
	FromTokenAddress string  `json:"from_token_address"`
	ToTokenAddress   string  `json:"to_token_address"`
	OriginNetwork    string  `json:"origin_network"`
	DestinNetwork    string  `json:"destin_network"`
	TransferAmount   float64 `json:"transfer_amount"`
	CreatedBy        string  `json:"created_by"`
}

func (s *Server) requestTx(w http.ResponseWriter, r *http.Request) {
	var body requestTxBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Fail("malformed request body"))
		return
	}

	req := &coordinator.QuoteRequest{
		SenderAddress:   body.SenderAddress,
		ReceiverAddress: body.ReceiverAddress,
		TransferAmount:  body.TransferAmount,
	}
	var err error
	if req.FromTokenID, err = parseID("from_token_address", body.FromTokenAddress); err != nil {
		writeErr(w, err)
		return
	}
	if req.ToTokenID, err = parseID("to_token_address", body.ToTokenAddress); err != nil {
		writeErr(w, err)
		return
	}
	if req.OriginNetworkID, err = parseID("origin_network", body.OriginNetwork); err != nil {
		writeErr(w, err)
		return
	}
	if req.DestinationNetworkID, err = parseID("destin_network", body.DestinNetwork); err != nil {
		writeErr(w, err)
		return
	}
	if body.CreatedBy != "" {
		if req.CreatedBy, err = parseID("created_by", body.CreatedBy); err != nil {
			writeErr(w, err)
			return
		}
	}

	quote, err := s.coord.Quote(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(quote))
}

// broadcastTxBody is the POST /broadcast-tx wire format.
type broadcastTxBody struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

func (s *Server) broadcastTx(w http.ResponseWriter, r *http.Request) {
	var body broadcastTxBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Fail("malformed request body"))
		return
	}
	id, err := parseID("id", body.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	result, err := s.coord.VerifyAndRelease(r.Context(), id, body.Hash)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(result))
}

func (s *Server) listNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := s.ledger.GetAllNetworks(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(networks))
}

func (s *Server) getNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	network, err := s.ledger.GetNetwork(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(network))
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.ledger.GetAllTokens(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(tokens))
}

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	token, err := s.ledger.GetToken(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(token))
}

func (s *Server) listBridges(w http.ResponseWriter, r *http.Request) {
	bridges, err := s.ledger.GetAllBridges(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(bridges))
}

func (s *Server) getBridge(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", r.URL.Query().Get("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	bridge, err := s.ledger.GetBridge(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(bridge))
}

// createTokenBody is the POST /token wire format.
type createTokenBody struct {
	NetworkID    string          `json:"network_id"`
	TokenAddress string          `json:"token_address"`
	TokenSymbol  string          `json:"token_symbol"`
	AssetType    string          `json:"asset_type"`
	ABI          json.RawMessage `json:"abi,omitempty"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var body createTokenBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Fail("malformed request body"))
		return
	}
	networkID, err := parseID("network_id", body.NetworkID)
	if err != nil {
		writeErr(w, err)
		return
	}
	class, err := models.ParseAssetClass(body.AssetType)
	if err != nil {
		writeErr(w, err)
		return
	}
	token := &models.Token{
		NetworkID:    networkID,
		TokenAddress: body.TokenAddress,
		TokenSymbol:  body.TokenSymbol,
		AssetClass:   class,
		ABI:          body.ABI,
	}
	if err := s.ledger.CreateToken(r.Context(), token); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(token))
}

func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.ledger.GetAllTransfers(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Success(transfers))
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errs.Validationf(errs.CodeAddressParse, "%s must be a UUID, got %q", field, value)
	}
	return id, nil
}
