package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/item-stock/internal/adapter/handler/rpc"
)

const (
	grpcAddr      = "localhost:50051"
	maxStock      = 100
	minStock      = 20
	totalRequests = 150
)

func main() {
	ctx := context.Background()

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect grpc: %v", err)
	}
	defer conn.Close()
	client := rpc.NewItemServiceClient(conn)

	// Create a fresh item starting at maxStock
	itemID := uuid.NewString()
	maxValue, minValue := int64(maxStock), int64(minStock)
	if _, err := client.CreateItem(ctx, &rpc.CreateItemRequest{ID: itemID, MaxStock: &maxValue, MinStock: &minValue}); err != nil {
		log.Fatalf("failed to create item: %v", err)
	}
	defer client.DeleteItem(ctx, &rpc.DeleteItemRequest{ID: itemID})

	// Counters
	var successCount atomic.Int32
	var rejectedCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent decrements; only maxStock-minStock of them fit
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := client.IncrementItemStock(ctx, &rpc.IncrementItemStockRequest{ID: itemID, Quantity: -1})
			switch {
			case err == nil:
				successCount.Add(1)
			case status.Code(err) == codes.InvalidArgument:
				rejectedCount.Add(1)
			default:
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	rejected := rejectedCount.Load()
	expected := int32(maxStock - minStock)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Max / Min Stock:  %d / %d\n", maxStock, minStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == expected && rejected == int32(totalRequests)-expected {
		fmt.Printf("PASS: Exactly %d decrements succeeded, %d rejected\n", expected, rejected)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			expected, int32(totalRequests)-expected, success, rejected)
	}

	// Verify final stock
	details, err := client.GetItemDetails(ctx, &rpc.GetItemDetailsRequest{ID: itemID})
	if err != nil {
		log.Fatalf("failed to get item: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", details.Stock)

	if details.Stock == minStock {
		fmt.Println("PASS: Stock stopped at the minimum")
	} else {
		fmt.Printf("FAIL: Expected stock %d, got %d\n", minStock, details.Stock)
	}
}
