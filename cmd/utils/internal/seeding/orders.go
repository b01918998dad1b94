package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/kitchen"
	"github.com/appetiteclub/fulfillment/internal/order"
	"github.com/appetiteclub/fulfillment/internal/tables"
	"github.com/appetiteclub/fulfillment/pkg/enums/kitchenstatus"
	"github.com/appetiteclub/fulfillment/pkg/enums/station"
)

type demoLine struct {
	name        string
	station     string
	unitPrice   float64
	quantity    int
	prepMinutes int
}

// SeedOrders seats demo orders on the demo floor plan and fans the prepared
// items out into kitchen tickets, one per station, in various states of
// progress.
func SeedOrders(ctx context.Context, db *mongo.Database) error {
	var seats []tables.Table
	cursor, err := db.Collection("tables").Find(ctx, bson.M{
		"number": bson.M{"$regex": "^" + TableNumberPrefix},
		"status": "available",
	})
	if err != nil {
		return fmt.Errorf("cannot fetch demo tables: %w", err)
	}
	if err := cursor.All(ctx, &seats); err != nil {
		return fmt.Errorf("cannot decode demo tables: %w", err)
	}
	cursor.Close(ctx)

	if len(seats) < 2 {
		return fmt.Errorf("need at least 2 available demo tables (found %d)", len(seats))
	}

	// Scenario 1: couple on the terrace, kitchen already cooking.
	if err := seedScenario(ctx, db, &seats[0], "DEMO-1001", []demoLine{
		{"Aperol Spritz", station.Stations.Bar.Name, 11.00, 2, 4},
		{"Burrata", station.Stations.Salad.Name, 14.50, 1, 8},
		{"Margherita", station.Stations.Grill.Name, 13.00, 1, 12},
	}, kitchenstatus.Statuses.Preparing.Name); err != nil {
		return err
	}

	// Scenario 2: larger party just seated, tickets still pending.
	if err := seedScenario(ctx, db, &seats[1], "DEMO-1002", []demoLine{
		{"Rib Eye", station.Stations.Grill.Name, 32.00, 2, 25},
		{"Caesar Salad", station.Stations.Salad.Name, 12.00, 2, 6},
		{"Fries", station.Stations.Fry.Name, 5.50, 3, 7},
		{"House Red", station.Stations.Bar.Name, 7.00, 4, 2},
	}, kitchenstatus.Statuses.Pending.Name); err != nil {
		return err
	}

	return nil
}

func seedScenario(ctx context.Context, db *mongo.Database, seat *tables.Table, orderNumber string, lines []demoLine, ticketStatus string) error {
	o := order.NewOrder()
	o.OrderNumber = orderNumber
	o.TableID = &seat.ID
	o.TableNumber = seat.Number

	items := make([]*order.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := order.NewOrderItem()
		item.OrderID = o.ID
		item.ProductType = "menu_item"
		item.Name = line.name
		item.Station = line.station
		item.UnitPrice = line.unitPrice
		item.Quantity = line.quantity
		item.PrepMinutes = line.prepMinutes
		item.Recalculate()
		item.BeforeCreate()
		items = append(items, item)
	}
	o.Recalculate(items)
	o.BeforeCreate()

	if err := seat.Assign(o.ID); err != nil {
		return fmt.Errorf("cannot seat demo order %s: %w", orderNumber, err)
	}
	if _, err := db.Collection("tables").UpdateOne(ctx, bson.M{"_id": seat.ID}, bson.M{"$set": seat}); err != nil {
		return fmt.Errorf("cannot update demo table %s: %w", seat.Number, err)
	}

	if _, err := db.Collection("orders").InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot insert demo order %s: %w", orderNumber, err)
	}

	itemDocs := make([]interface{}, 0, len(items))
	byStation := make(map[string][]*order.OrderItem)
	for _, item := range items {
		itemDocs = append(itemDocs, item)
		byStation[item.Station] = append(byStation[item.Station], item)
	}
	if _, err := db.Collection("order_items").InsertMany(ctx, itemDocs); err != nil {
		return fmt.Errorf("cannot insert demo order items: %w", err)
	}

	ticketDocs := make([]interface{}, 0, len(byStation))
	for station, stationItems := range byStation {
		ticket := kitchen.NewTicket()
		ticket.OrderID = o.ID
		ticket.OrderNumber = o.OrderNumber
		ticket.Station = station
		ticket.TableNumber = o.TableNumber
		for _, item := range stationItems {
			if item.PrepMinutes > ticket.EstimatedTime {
				ticket.EstimatedTime = item.PrepMinutes
			}
			ticket.Items = append(ticket.Items, kitchen.TicketItem{
				ID:          aqm.GenerateNewID(),
				OrderItemID: item.ID,
				Name:        item.Name,
				Quantity:    item.Quantity,
			})
		}
		if ticketStatus == kitchenstatus.Statuses.Preparing.Name {
			if err := ticket.Start(); err != nil {
				return fmt.Errorf("cannot start demo ticket: %w", err)
			}
			started := time.Now().Add(-10 * time.Minute)
			ticket.StartedAt = &started
		}
		ticket.BeforeCreate()
		ticketDocs = append(ticketDocs, ticket)
	}
	if len(ticketDocs) > 0 {
		if _, err := db.Collection("kitchen_tickets").InsertMany(ctx, ticketDocs); err != nil {
			return fmt.Errorf("cannot insert demo kitchen tickets: %w", err)
		}
	}

	return nil
}
