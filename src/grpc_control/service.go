package grpc_control

import (
	"context"
	"fmt"
	"strings"

	"symbollist-observer/src/config"
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements ControlServer on top of the symbol list handler.
// Requests and closes made through it are persisted to the startup item list
// when a config path is set.
type ControlService struct {
	Config     *config.Config
	Controller interfaces.ISymbolListController
	ConfigPath string
	Logger     *logger.Logger
}

var _ ControlServer = (*ControlService)(nil)

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	controller interfaces.ISymbolListController,
	cfgPath string,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:     cfg,
		Controller: controller,
		ConfigPath: cfgPath,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) itemName(req *wrapperspb.StringValue) (string, error) {
	raw := strings.TrimSpace(req.GetValue())
	if raw == "" {
		return "", status.Error(codes.InvalidArgument, "item name is required")
	}
	return models.ResolveItemName(raw, s.Controller.ServiceName()), nil
}

func (s *ControlService) persist() {
	if s.Config == nil || s.ConfigPath == "" {
		return
	}
	if err := s.Config.Save(s.ConfigPath); err != nil {
		s.Logger.Error("gRPC: failed to save config: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) SendRequest(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name, err := s.itemName(req)
	if err != nil {
		return nil, err
	}

	if err := s.Controller.SendRequest(name); err != nil {
		return nil, status.Errorf(codes.Unavailable, "request %s: %v", name, err)
	}
	if s.Config != nil && s.Config.AddItem(name) {
		s.persist()
	}

	s.Logger.Info("gRPC: SendRequest %s", name)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) CloseRequest(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name, err := s.itemName(req)
	if err != nil {
		return nil, err
	}

	s.Controller.CloseRequest(name)
	if s.Config != nil && s.Config.RemoveItem(name) {
		s.persist()
	}

	s.Logger.Info("gRPC: CloseRequest %s", name)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) CloseAllRequest(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.Controller.CloseAllRequest()
	s.Logger.Info("gRPC: CloseAllRequest")
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

// GetSymbolList returns the active item's symbols for an empty name.
func (s *ControlService) GetSymbolList(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	var symbols []string
	if strings.TrimSpace(req.GetValue()) == "" {
		symbols = s.Controller.GetSymbolList()
	} else {
		name, _ := s.itemName(req)
		symbols = s.Controller.GetItemSymbolList(name)
	}

	values := make([]any, len(symbols))
	for i, sym := range symbols {
		values[i] = sym
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode symbols: %v", err)
	}
	return list, nil
}

// -----------------------------------------------------------------------------

// IsRefreshComplete answers for every item when the name is empty.
func (s *ControlService) IsRefreshComplete(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if strings.TrimSpace(req.GetValue()) == "" {
		return wrapperspb.Bool(s.Controller.IsRefreshComplete()), nil
	}
	name, _ := s.itemName(req)
	return wrapperspb.Bool(s.Controller.IsItemRefreshComplete(name)), nil
}

// -----------------------------------------------------------------------------

// GetWatchList maps each handle to its "name.service" key.
func (s *ControlService) GetWatchList(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	watch := s.Controller.GetWatchList()
	fields := make(map[string]any, len(watch))
	for handle, identity := range watch {
		fields[string(handle)] = identity.Key()
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode watchlist: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	items := make([]any, 0)
	for _, st := range s.Controller.ItemStatuses() {
		items = append(items, map[string]any{
			"name":             st.Identity.Name,
			"service":          st.Identity.ServiceName,
			"handle":           string(st.Handle),
			"watched":          st.Watched,
			"active":           st.Active,
			"refresh_complete": st.Refresh.Complete,
			"partial_count":    st.Refresh.PartialCount,
			"symbols":          st.Symbols,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"service":          s.Controller.ServiceName(),
		"refresh_complete": s.Controller.IsRefreshComplete(),
		"items":            items,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) String() string {
	return fmt.Sprintf("ControlService(%s)", s.Controller.ServiceName())
}
