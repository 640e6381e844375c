// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogBetRecorded logs a newly recorded bet.
func (al *AuditLogger) LogBetRecorded(transactionID, strategyID, contestID, wagerType, combination string, amount, odds float64, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"strategy_id":    strategyID,
		"contest_id":     contestID,
		"wager_type":     wagerType,
		"combination":    combination,
		"amount":         amount,
		"odds":           odds,
		"timestamp":      timestamp.Unix(),
	}).Info("Bet recorded")
}

// LogDuplicateBet logs a rejected duplicate placement attempt.
func (al *AuditLogger) LogDuplicateBet(strategyID, contestID, combination string) {
	al.WithFields(logrus.Fields{
		"strategy_id": strategyID,
		"contest_id":  contestID,
		"combination": combination,
	}).Warn("Duplicate bet ignored")
}

// LogSettlement logs a settled transaction.
func (al *AuditLogger) LogSettlement(contestID, combination, status string, amount, returnAmount float64) {
	al.WithFields(logrus.Fields{
		"contest_id":    contestID,
		"combination":   combination,
		"status":        status,
		"amount":        amount,
		"return_amount": returnAmount,
	}).Info("Transaction settled")
}

// LogBalanceChange logs a bankroll movement.
func (al *AuditLogger) LogBalanceChange(reason string, delta, balance float64) {
	al.WithFields(logrus.Fields{
		"reason":  reason,
		"delta":   delta,
		"balance": balance,
	}).Info("Balance changed")
}
