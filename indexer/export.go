package indexer

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"nftescrow/native/market"
)

type escrowRow struct {
	EscrowID        int64  `parquet:"name=escrow_id, type=INT64"`
	Collection      string `parquet:"name=collection, type=BYTE_ARRAY, convertedtype=UTF8"`
	TokenID         string `parquet:"name=token_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seller          string `parquet:"name=seller, type=BYTE_ARRAY, convertedtype=UTF8"`
	Buyer           string `parquet:"name=buyer, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount          string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	PaymentType     string `parquet:"name=payment_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status          string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	StatusCode      int32  `parquet:"name=status_code, type=INT32"`
	SellerConfirmed bool   `parquet:"name=seller_confirmed, type=BOOLEAN"`
	BuyerConfirmed  bool   `parquet:"name=buyer_confirmed, type=BOOLEAN"`
	DisputeRaised   bool   `parquet:"name=dispute_raised, type=BOOLEAN"`
}

// ExportEscrowsParquet writes the escrow ledger to path as a snappy
// compressed parquet file, one row per item.
func ExportEscrowsParquet(path string, items []*market.EscrowItem) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(escrowRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, item := range items {
		if item == nil {
			continue
		}
		amount := "0"
		if item.Amount != nil {
			amount = item.Amount.Dec()
		}
		row := &escrowRow{
			EscrowID:        int64(item.ID),
			Collection:      item.Collection.Hex(),
			TokenID:         item.TokenID.Hex(),
			Seller:          item.Seller.Hex(),
			Buyer:           item.Buyer.Hex(),
			Amount:          amount,
			PaymentType:     item.PaymentType.String(),
			Status:          item.Status.String(),
			StatusCode:      int32(item.Status),
			SellerConfirmed: item.SellerConfirmed,
			BuyerConfirmed:  item.BuyerConfirmed,
			DisputeRaised:   item.DisputeRaised,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("indexer: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("indexer: close parquet file: %w", err)
	}
	return nil
}
