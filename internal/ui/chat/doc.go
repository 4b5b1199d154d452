// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the ragchat terminal UI.

One Bubble Tea model composes the two controllers: the conversation log on
top of a scrolling viewport, and the training panel that Ctrl+T slides in
above it. The model holds no session state of its own beyond focus and
layout; everything else is read back from the controllers on each render.

# Files

  - model.go: Model, Config, Init/Update and key routing
  - panel.go: focus ring across the chat line and the panel fields
  - view.go: header, panel, message list, input and help rendering
  - commands.go: tea.Cmds that run network calls and exports
  - messages.go: typed messages those commands return
  - keys.go: key bindings and help text
  - markdown.go: glamour rendering of assistant replies

# Network calls

Update never blocks. Enter and Ctrl+S call Begin on the controller, return a
command that runs Send on a Bubble Tea goroutine, and apply the outcome with
Finish when the reply message arrives. The training reset fires from a timer
owned by the training controller; ResetNotifier forwards it into the program
as a TrainingResetMsg so the screen redraws.
*/
package chat
