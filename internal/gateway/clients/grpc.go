package clients

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient talks grpc.health.v1 to the POS side service.
type HealthClient struct {
	Health healthpb.HealthClient
	conn   *grpc.ClientConn
}

// NewHealthClient does not dial eagerly; an unreachable service shows up on
// the first Check.
func NewHealthClient(addr string, opts ...grpc.DialOption) (*HealthClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("pos service connection failed: %w", err)
	}

	log.Printf("POS health client targeting %s", addr)
	return &HealthClient{
		Health: healthpb.NewHealthClient(conn),
		conn:   conn,
	}, nil
}

func (c *HealthClient) Check(ctx context.Context, service string) (*healthpb.HealthCheckResponse, error) {
	return c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
}

func (c *HealthClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
