package logging

import "github.com/sirupsen/logrus"

// Logrus adapts a *logrus.Entry.
type Logrus struct{ E *logrus.Entry }

func (l Logrus) Debug(msg string, f Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logrus) Info(msg string, f Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logrus) Warn(msg string, f Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logrus) Error(msg string, f Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
